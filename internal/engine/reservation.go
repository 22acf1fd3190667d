package engine

// reservations records unique values claimed by earlier executable create
// requests of one strict run: entity -> field -> set of values.
type reservations map[string]map[string]map[string]struct{}

func (r reservations) has(entity, field, value string) bool {
	_, ok := r[entity][field][value]
	return ok
}

func (r reservations) add(entity, field, value string) {
	fields, ok := r[entity]
	if !ok {
		fields = make(map[string]map[string]struct{})
		r[entity] = fields
	}
	values, ok := fields[field]
	if !ok {
		values = make(map[string]struct{})
		fields[field] = values
	}
	values[value] = struct{}{}
}
