package integration

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shaiso/orcpub/internal/domain"
)

// LabelPredicate решает, обслуживает ли провайдер данный набор меток.
type LabelPredicate func(domain.Labels) bool

// DevEnv принимает dev-окружение.
func DevEnv(l domain.Labels) bool { return l.IsDevEnv() }

// NonDevEnv принимает всё, кроме dev.
func NonDevEnv(l domain.Labels) bool { return !l.IsDevEnv() }

// AnyEnv принимает любые метки.
func AnyEnv(domain.Labels) bool { return true }

// PredicateFor возвращает предикат по имени окружения: dev, prod или any.
func PredicateFor(env string) (LabelPredicate, error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev":
		return DevEnv, nil
	case "prod":
		return NonDevEnv, nil
	case "any", "":
		return AnyEnv, nil
	default:
		return nil, fmt.Errorf("unknown environment %q", env)
	}
}

type registration struct {
	standard string
	accepts  LabelPredicate
	provider Provider
}

// Registry — реестр провайдеров.
//
// Resolve возвращает первую регистрацию (в порядке Register), у которой
// совпал стандарт и предикат принял метки. Потокобезопасен.
type Registry struct {
	mu   sync.RWMutex
	regs []registration
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register добавляет провайдер для стандарта.
func (r *Registry) Register(standard string, accepts LabelPredicate, p Provider) {
	if accepts == nil {
		accepts = AnyEnv
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regs = append(r.regs, registration{
		standard: normalizeStandard(standard),
		accepts:  accepts,
		provider: p,
	})
}

// Resolve возвращает провайдер для стандарта и меток.
// Возвращает ErrProviderNotFound, если подходящего нет.
func (r *Registry) Resolve(standard string, labels domain.Labels) (Provider, error) {
	key := normalizeStandard(standard)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, reg := range r.regs {
		if reg.standard == key && reg.accepts(labels) {
			return reg.provider, nil
		}
	}
	return nil, fmt.Errorf("%w: standard=%s env=%s", ErrProviderNotFound, key, labels.Env())
}

// UnknownStandard — значение метки метрик для незарегистрированных стандартов.
const UnknownStandard = "unknown"

// MetricLabel возвращает нормализованный стандарт, если он зарегистрирован,
// и UnknownStandard иначе. Тип приходит из пакета, поэтому в метки метрик
// попадают только известные значения.
func (r *Registry) MetricLabel(standard string) string {
	key := normalizeStandard(standard)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, reg := range r.regs {
		if reg.standard == key {
			return key
		}
	}
	return UnknownStandard
}

// Standards возвращает список зарегистрированных стандартов.
func (r *Registry) Standards() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, reg := range r.regs {
		if !seen[reg.standard] {
			seen[reg.standard] = true
			out = append(out, reg.standard)
		}
	}
	sort.Strings(out)
	return out
}

func normalizeStandard(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
