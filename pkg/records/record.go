package records

// Values maps field names to string, int64, bool or nil.
type Values map[string]any

// Clone returns a shallow copy. Values only hold scalars, so it is a full copy.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Record is one stored instance of an entity.
type Record struct {
	ID     int64
	Values Values
}
