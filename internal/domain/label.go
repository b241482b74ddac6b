package domain

import "strings"

// Label — тег классификации окружения.
type Label string

// Известные окружения.
const (
	LabelDev  Label = "dev"
	LabelProd Label = "prod"
)

// Labels — набор активных меток запроса.
type Labels []Label

// IsDevEnv возвращает true, если среди меток есть метка окружения разработки.
func (ls Labels) IsDevEnv() bool {
	for _, l := range ls {
		if strings.EqualFold(strings.TrimSpace(string(l)), string(LabelDev)) {
			return true
		}
	}
	return false
}

// Env возвращает имя окружения: "dev" или "prod".
func (ls Labels) Env() string {
	if ls.IsDevEnv() {
		return string(LabelDev)
	}
	return string(LabelProd)
}

// ParseLabels разбирает список меток, разделённых запятыми.
func ParseLabels(s string) Labels {
	var ls Labels
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			ls = append(ls, Label(part))
		}
	}
	return ls
}
