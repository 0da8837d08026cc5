package progress

// ClientProgress is the derived completion snapshot of one client in a round.
type ClientProgress struct {
	ClientID  string `json:"client_id"`
	Total     int    `json:"total_checkpoints"`
	Completed int    `json:"completed_checkpoints"`
}

// Complete reports whether every active checkpoint of the client has a
// visit. Clients without active checkpoints are complete.
func (c ClientProgress) Complete() bool {
	return c.Completed >= c.Total
}

// Remaining returns the number of checkpoints still to visit.
func (c ClientProgress) Remaining() int {
	if c.Completed >= c.Total {
		return 0
	}
	return c.Total - c.Completed
}

// RoundProgress aggregates client snapshots in scope order.
type RoundProgress struct {
	RoundID   string           `json:"round_id"`
	Clients   []ClientProgress `json:"clients"`
	Total     int              `json:"total_checkpoints"`
	Completed int              `json:"completed_checkpoints"`
}

// Complete reports whether every client in scope is complete.
func (p RoundProgress) Complete() bool {
	for _, c := range p.Clients {
		if !c.Complete() {
			return false
		}
	}
	return true
}

// Outstanding returns the incomplete clients.
func (p RoundProgress) Outstanding() []ClientProgress {
	var out []ClientProgress
	for _, c := range p.Clients {
		if !c.Complete() {
			out = append(out, c)
		}
	}
	return out
}

func aggregate(roundID string, clients []ClientProgress) *RoundProgress {
	p := &RoundProgress{RoundID: roundID, Clients: clients}
	for _, c := range clients {
		p.Total += c.Total
		p.Completed += c.Completed
	}
	return p
}
