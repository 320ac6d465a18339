package model

import (
	"encoding/json"
	"sync/atomic"
)

// Progress holds the counters of one attack.
// It is owned by the attack and shared by pointer with whoever reports
// progress; all methods are safe for concurrent use.
type Progress struct {
	attempted atomic.Int64
	errors    atomic.Int64
	total     atomic.Int64
}

// NewProgress returns a Progress with an unknown total.
func NewProgress() *Progress {
	p := &Progress{}
	p.total.Store(-1)
	return p
}

// AddAttempt records one processed verdict. isError marks Error verdicts.
func (p *Progress) AddAttempt(isError bool) {
	p.attempted.Add(1)
	if isError {
		p.errors.Add(1)
	}
}

// Attempted returns the number of candidates whose verdict was processed.
// It never decreases.
func (p *Progress) Attempted() int64 {
	return p.attempted.Load()
}

// Errors returns the number of Error verdicts processed.
func (p *Progress) Errors() int64 {
	return p.errors.Load()
}

// SetTotal records the total number of candidates.
func (p *Progress) SetTotal(total int64) {
	p.total.Store(total)
}

// Total returns the total number of candidates and whether it is known.
func (p *Progress) Total() (int64, bool) {
	total := p.total.Load()
	return total, total >= 0
}

// Percent returns the completion percentage, or -1 if the total is unknown.
func (p *Progress) Percent() float64 {
	total, ok := p.Total()
	if !ok {
		return -1
	}
	if total == 0 {
		return 100
	}
	return float64(p.Attempted()) * 100 / float64(total)
}

// progressJSON is the serialized form of Progress.
type progressJSON struct {
	Attempted int64 `json:"attempted"`
	Errors    int64 `json:"errors"`
	Total     int64 `json:"total"`
}

// MarshalJSON implements json.Marshaler.
func (p *Progress) MarshalJSON() ([]byte, error) {
	return json.Marshal(progressJSON{
		Attempted: p.Attempted(),
		Errors:    p.Errors(),
		Total:     p.total.Load(),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Progress) UnmarshalJSON(data []byte) error {
	var v progressJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	p.attempted.Store(v.Attempted)
	p.errors.Store(v.Errors)
	p.total.Store(v.Total)
	return nil
}
