package invoke

import (
	"time"

	"github.com/google/uuid"
)

// Record describes one finished call.
type Record struct {
	Started    time.Time
	Operation  string
	Options    string
	Error      string
	Shape      Shape
	Duration   time.Duration
	Inputs     int
	Named      int
	Advisories int
	ID         uuid.UUID
}

// Failed reports whether the call returned an error.
func (r Record) Failed() bool {
	return r.Error != ""
}

// Observer is notified after every call, successful or not.
type Observer interface {
	OnCall(r Record)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Record)

func (f ObserverFunc) OnCall(r Record) { f(r) }

func newRecordID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
