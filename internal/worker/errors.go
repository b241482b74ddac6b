package worker

import "errors"

// ErrUnexpectedMessage — в очередь импорта попало сообщение другого типа.
var ErrUnexpectedMessage = errors.New("unexpected message type")
