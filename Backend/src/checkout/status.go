package checkout

// Kind names the variant of a Status.
type Kind string

const (
	KindIdle       Kind = "idle"
	KindProcessing Kind = "processing"
	KindSucceeded  Kind = "succeeded"
	KindFailed     Kind = "failed"
)

// Status is the state of a checkout: exactly one of Idle, Processing,
// Succeeded or Failed.
type Status interface {
	Kind() Kind
	isStatus()
}

type Idle struct{}

type Processing struct{}

type Succeeded struct {
	OrderID string
}

type Failed struct {
	Message string
}

func (Idle) Kind() Kind       { return KindIdle }
func (Processing) Kind() Kind { return KindProcessing }
func (Succeeded) Kind() Kind  { return KindSucceeded }
func (Failed) Kind() Kind     { return KindFailed }

func (Idle) isStatus()       {}
func (Processing) isStatus() {}
func (Succeeded) isStatus()  {}
func (Failed) isStatus()     {}

// View is the flat form of a Status for templates and JSON.
type View struct {
	State   Kind   `json:"state"`
	OrderID string `json:"order_id,omitempty"`
	Message string `json:"message,omitempty"`
}

func ViewOf(s Status) View {
	v := View{State: s.Kind()}
	switch st := s.(type) {
	case Succeeded:
		v.OrderID = st.OrderID
	case Failed:
		v.Message = st.Message
	}
	return v
}

// locked reports whether a new submission must be ignored.
func locked(s Status) bool {
	switch s.(type) {
	case Processing, Succeeded:
		return true
	}
	return false
}
