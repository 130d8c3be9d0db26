package extract

import (
	"errors"
	"fmt"

	"github.com/DRSN-tech/market-crawler/internal/characteristic"
	"github.com/DRSN-tech/market-crawler/internal/domain"
)

// Failure — пара, которую правило забрало, но не смогло разобрать целиком.
type Failure struct {
	Pair   domain.RawCharacteristic
	Target characteristic.ID
	Err    error
}

// Result содержит итог разбора таблицы характеристик одной страницы.
type Result struct {
	Values   []characteristic.Value
	Failures []Failure
	Unknown  []domain.RawCharacteristic // пары, которые не забрало ни одно правило
}

// Engine последовательно прогоняет пары через этапы извлечения.
// Каждое правило забирает пару по точному совпадению нормализованной подписи.
type Engine struct {
	stages map[Stage]map[string]Rule
}

// NewEngine собирает движок из таблицы правил для указанных языков
// (все языки, если список пуст) и проверяет таблицу.
func NewEngine(rules []Rule, locales ...Locale) (*Engine, error) {
	allowed := make(map[Locale]bool, len(locales))
	for _, l := range locales {
		allowed[l] = true
	}

	eng := &Engine{stages: make(map[Stage]map[string]Rule, len(stageOrder))}
	for _, s := range stageOrder {
		eng.stages[s] = make(map[string]Rule)
	}

	var errs []error
	covered := make(map[characteristic.ID]bool)
	seen := make(map[string]Rule, len(rules))
	for _, r := range rules {
		if len(allowed) > 0 && !allowed[r.Locale] {
			continue
		}
		if err := checkRule(r); err != nil {
			errs = append(errs, err)
			continue
		}
		key := normalizeLabel(r.Label)
		if prev, dup := seen[key]; dup {
			errs = append(errs, fmt.Errorf("label %q claimed by stages %d and %d", key, prev.Stage, r.Stage))
			continue
		}
		seen[key] = r
		eng.stages[r.Stage][key] = r
		if r.Target != 0 {
			covered[r.Target] = true
		}
	}

	for _, id := range flagSynonyms {
		covered[id] = true
	}
	for _, id := range versionedFlags {
		covered[id] = true
	}
	for _, d := range characteristic.Definitions() {
		if !covered[d.ID] {
			errs = append(errs, fmt.Errorf("characteristic %s has no extraction rule", d.Slug))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return eng, nil
}

func checkRule(r Rule) error {
	if normalizeLabel(r.Label) == "" {
		return fmt.Errorf("empty label in stage %d", r.Stage)
	}
	if r.Stage == StageSkip {
		if r.Extract != nil || r.Target != 0 {
			return fmt.Errorf("skip rule %q must not extract", r.Label)
		}
		return nil
	}

	kind, ok := stageKind[r.Stage]
	if !ok {
		return fmt.Errorf("rule %q has unknown stage %d", r.Label, r.Stage)
	}
	if r.Extract == nil {
		return fmt.Errorf("rule %q has no extractor", r.Label)
	}
	if r.Target == 0 {
		if r.Stage != StageBool {
			return fmt.Errorf("rule %q has no target", r.Label)
		}
		return nil
	}
	d, ok := characteristic.Lookup(r.Target)
	if !ok {
		return fmt.Errorf("rule %q targets unknown characteristic %d", r.Label, r.Target)
	}
	if d.Kind != kind {
		return fmt.Errorf("rule %q: %s is %s, stage expects %s", r.Label, d.Slug, d.Kind, kind)
	}
	return nil
}

// Extract разбирает пары. Ошибка одной характеристики не прерывает разбор:
// она попадает в Failures, а пара без правила — в Unknown.
func (eng *Engine) Extract(pairs []domain.RawCharacteristic) Result {
	type pending struct {
		pair domain.RawCharacteristic
		key  string
	}

	remaining := make([]pending, 0, len(pairs))
	for _, p := range pairs {
		remaining = append(remaining, pending{pair: p, key: normalizeLabel(p.Label)})
	}

	var (
		res  Result
		acc  = newAccumulator()
		keep []pending
	)
	for _, stage := range stageOrder {
		table := eng.stages[stage]
		keep = remaining[:0]
		for _, p := range remaining {
			rule, ok := table[p.key]
			if !ok {
				keep = append(keep, p)
				continue
			}
			if rule.Extract == nil {
				continue
			}
			text := normalizeText(p.pair.Value)
			if stage == StageString {
				text = cleanText(p.pair.Value)
			}
			vals, err := rule.Extract(rule.Target, text)
			acc.add(vals)
			if err != nil {
				res.Failures = append(res.Failures, Failure{Pair: p.pair, Target: rule.Target, Err: err})
			}
		}
		remaining = keep
	}

	res.Values = acc.values
	for _, p := range remaining {
		res.Unknown = append(res.Unknown, p.pair)
	}
	return res
}

// accumulator хранит первое значение для одиночных характеристик
// и объединение без повторов для Multi.
type accumulator struct {
	values []characteristic.Value
	single map[characteristic.ID]bool
	multi  map[characteristic.ID]map[string]bool
}

func newAccumulator() *accumulator {
	return &accumulator{
		single: make(map[characteristic.ID]bool),
		multi:  make(map[characteristic.ID]map[string]bool),
	}
}

func (a *accumulator) add(vals []characteristic.Value) {
	for _, v := range vals {
		if v == nil {
			continue
		}
		id := v.CharacteristicID()
		d, _ := characteristic.Lookup(id)
		if !d.Multi {
			if a.single[id] {
				continue
			}
			a.single[id] = true
			a.values = append(a.values, v)
			continue
		}
		keys, ok := a.multi[id]
		if !ok {
			keys = make(map[string]bool)
			a.multi[id] = keys
		}
		if keys[v.Key()] {
			continue
		}
		keys[v.Key()] = true
		a.values = append(a.values, v)
	}
}
