package condition

import (
	"strings"

	"github.com/sghaida/wiregen/descriptor"
)

// Compose folds conds into one guard.
//
// Per subject, the allowed set is the intersection of every equality's values
// and the excluded set is the union of every inequality's values. The subject
// is unsatisfiable when an allowed set exists and nothing in it survives the
// exclusions; one unsatisfiable subject makes the whole guard False.
//
// Surviving terms are simplified: inequalities implied by an equality are
// dropped and repeated atoms merged. Subjects keep first-appearance order so
// the result is deterministic.
func Compose(conds []descriptor.Condition) (Expr, error) {
	type state struct {
		subject  Subject
		allowed  []string // nil: any value
		excluded []string
	}

	var order []string
	states := map[string]*state{}

	for _, c := range conds {
		subj, err := subjectOf(c)
		if err != nil {
			return nil, err
		}
		if len(c.Values) == 0 {
			return nil, descriptor.ErrNoValues
		}
		k := subj.fold()
		st, ok := states[k]
		if !ok {
			st = &state{subject: subj}
			states[k] = st
			order = append(order, k)
		}

		switch c.Op {
		case descriptor.Eq, "":
			vals := dedupe(c.Values)
			if st.allowed == nil {
				st.allowed = vals
			} else {
				st.allowed = intersect(st.allowed, vals)
			}
			if len(st.allowed) == 0 {
				return False{}, nil
			}
		case descriptor.Ne:
			st.excluded = union(st.excluded, c.Values)
		default:
			return nil, &descriptor.InvalidValueError{Field: "op", Value: string(c.Op)}
		}
	}

	var terms And
	for _, k := range order {
		st := states[k]
		if st.allowed != nil {
			left := subtract(st.allowed, st.excluded)
			switch len(left) {
			case 0:
				return False{}, nil
			case 1:
				terms = append(terms, Atom{Subject: st.subject, Op: descriptor.Eq, Value: left[0]})
			default:
				terms = append(terms, AnyOf{Subject: st.subject, Values: left})
			}
			continue
		}
		for _, v := range st.excluded {
			terms = append(terms, Atom{Subject: st.subject, Op: descriptor.Ne, Value: v})
		}
	}

	switch len(terms) {
	case 0:
		return True{}, nil
	case 1:
		return terms[0], nil
	default:
		return terms, nil
	}
}

func subjectOf(c descriptor.Condition) (Subject, error) {
	switch c.Subject {
	case descriptor.Environment:
		return Subject{Kind: descriptor.Environment}, nil
	case descriptor.Configuration:
		key := strings.TrimSpace(c.Key)
		if key == "" {
			return Subject{}, descriptor.ErrNoKey
		}
		return Subject{Kind: descriptor.Configuration, Key: key}, nil
	case "":
		return Subject{}, descriptor.ErrNoSubject
	default:
		return Subject{}, &descriptor.InvalidValueError{Field: "subject", Value: string(c.Subject)}
	}
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func dedupe(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if !contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// intersect keeps the spelling and order of a.
func intersect(a, b []string) []string {
	out := []string{}
	for _, v := range a {
		if contains(b, v) {
			out = append(out, v)
		}
	}
	return out
}

func union(a, b []string) []string {
	out := append([]string(nil), a...)
	for _, v := range b {
		if !contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func subtract(a, b []string) []string {
	out := []string{}
	for _, v := range a {
		if !contains(b, v) {
			out = append(out, v)
		}
	}
	return out
}
