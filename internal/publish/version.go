package publish

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shaiso/orcpub/internal/domain"
)

// InitialVersion — версия первого импорта оркестратора.
const InitialVersion = "v1"

// versionPattern: нечисловой префикс и число в конце.
var versionPattern = regexp.MustCompile(`^(\D*)(\d+)$`)

// NewVersion возвращает начальную версию.
func NewVersion() string {
	return InitialVersion
}

// IncreaseVersion увеличивает числовую часть версии на единицу.
// Префикс и ширина нулевого заполнения сохраняются: v000009 → v000010.
func IncreaseVersion(prior string) (string, error) {
	m := versionPattern.FindStringSubmatch(strings.TrimSpace(prior))
	if m == nil {
		return "", domain.NewError(domain.CodeVersionFormat, fmt.Sprintf("cannot increase version %q", prior))
	}

	n, err := strconv.ParseUint(m[2], 10, 63)
	if err != nil {
		return "", domain.WrapError(domain.CodeVersionFormat, fmt.Sprintf("cannot increase version %q", prior), err)
	}

	next := strconv.FormatUint(n+1, 10)
	if pad := len(m[2]) - len(next); pad > 0 {
		next = strings.Repeat("0", pad) + next
	}
	return m[1] + next, nil
}

// NextVersion выделяет версию после prior.
//
// Пустой prior — NewVersion. Если prior не разбирается, возвращается
// NewVersion и fellBack=true; вызывающий уточняет её через FallbackVersion.
func NextVersion(prior string) (version string, fellBack bool) {
	if strings.TrimSpace(prior) == "" {
		return NewVersion(), false
	}
	v, err := IncreaseVersion(prior)
	if err != nil {
		return NewVersion(), true
	}
	return v, false
}

// FallbackVersion выделяет версию, когда последняя версия не разбирается.
//
// Берётся версия с наибольшим номером из history и увеличивается на единицу.
// NewVersion — только если ни одна версия из history не разбирается.
// Результат больше любого номера в history, поэтому не совпадает ни с одной
// существующей версией.
func FallbackVersion(history []string) string {
	best, bestN := "", uint64(0)
	for _, h := range history {
		m := versionPattern.FindStringSubmatch(strings.TrimSpace(h))
		if m == nil {
			continue
		}
		n, err := strconv.ParseUint(m[2], 10, 63)
		if err != nil {
			continue
		}
		if best == "" || n > bestN {
			best, bestN = h, n
		}
	}
	if best == "" {
		return NewVersion()
	}
	next, err := IncreaseVersion(best)
	if err != nil {
		return NewVersion()
	}
	return next
}
