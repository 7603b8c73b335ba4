package domain

// SquadEntry assigns a percentage of every tip to a named account.
type SquadEntry struct {
	Name  string  `json:"name"`
	Split float64 `json:"split"`
}

// Squad is a validated split table. A nil Squad means 100% to the host.
type Squad []SquadEntry

// Clone returns a copy that is safe to hand outside the coordinator loop.
func (s Squad) Clone() Squad {
	if s == nil {
		return nil
	}
	out := make(Squad, len(s))
	copy(out, s)
	return out
}
