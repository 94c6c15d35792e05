// Package conversation holds the per-user workflow state of the bot.
//
// A user is in exactly one State at a time. States are ordered by Kind: when two
// workflows compete for a user, the one with the higher Kind owns the conversation.
package conversation

import "time"

// Kind identifies the active workflow. Declaration order is priority order, lowest first.
type Kind int

const (
	KindIdle Kind = iota
	KindAppointmentIntake
	KindQuestionIntake
	KindAdminReplying
	KindAdminPayment
)

func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindAppointmentIntake:
		return "appointment_intake"
	case KindQuestionIntake:
		return "question_intake"
	case KindAdminReplying:
		return "admin_replying"
	case KindAdminPayment:
		return "admin_payment"
	default:
		return "unknown"
	}
}

// State is one of Idle, AppointmentIntake, QuestionIntake, AdminReplying or AdminPayment.
type State interface {
	Kind() Kind
	// Consistent reports whether the scratch data holds everything the current step relies on.
	Consistent() bool
	sealed()
}

// Idle means no workflow is active.
type Idle struct{}

func (Idle) Kind() Kind       { return KindIdle }
func (Idle) Consistent() bool { return true }
func (Idle) sealed()          {}

// Variant selects the appointment intake flow.
type Variant int

const (
	// Full collects service, name, phone, date, time and comment.
	Full Variant = iota
	// Simplified collects name, phone and email for a preselected service and asks for confirmation.
	Simplified
)

// AppointmentStep is a step of the appointment intake.
type AppointmentStep string

const (
	WaitingService AppointmentStep = "waiting_service"
	WaitingName    AppointmentStep = "waiting_name"
	WaitingPhone   AppointmentStep = "waiting_phone"
	WaitingDate    AppointmentStep = "waiting_date"
	WaitingTime    AppointmentStep = "waiting_time"
	WaitingComment AppointmentStep = "waiting_comment"
	WaitingEmail   AppointmentStep = "waiting_email"
	WaitingConfirm AppointmentStep = "waiting_confirm"
)

var (
	fullSteps       = []AppointmentStep{WaitingService, WaitingName, WaitingPhone, WaitingDate, WaitingTime, WaitingComment}
	simplifiedSteps = []AppointmentStep{WaitingName, WaitingPhone, WaitingEmail, WaitingConfirm}
)

// Steps returns the ordered steps of the variant.
func (v Variant) Steps() []AppointmentStep {
	if v == Simplified {
		return simplifiedSteps
	}
	return fullSteps
}

func (v Variant) String() string {
	if v == Simplified {
		return "simplified"
	}
	return "full"
}

// AppointmentDraft is the scratch data of an appointment intake.
type AppointmentDraft struct {
	Service string
	Name    string
	Phone   string
	Email   string
	Date    time.Time // midnight in the business location; zero until chosen
	Time    string    // "15:04"
	Comment string
}

// AppointmentIntake is an appointment request being filled in by a client.
type AppointmentIntake struct {
	Variant Variant
	Step    AppointmentStep
	Draft   AppointmentDraft
}

func (AppointmentIntake) Kind() Kind { return KindAppointmentIntake }
func (AppointmentIntake) sealed()    {}

// Consistent checks that every field collected by the steps before Step is present.
func (s AppointmentIntake) Consistent() bool {
	steps := s.Variant.Steps()
	pos := -1
	for i, st := range steps {
		if st == s.Step {
			pos = i
			break
		}
	}
	if pos < 0 {
		return false
	}
	if s.Variant == Simplified && s.Draft.Service == "" {
		return false
	}
	for _, done := range steps[:pos] {
		if !s.Draft.has(done) {
			return false
		}
	}
	return true
}

func (d AppointmentDraft) has(step AppointmentStep) bool {
	switch step {
	case WaitingService:
		return d.Service != ""
	case WaitingName:
		return d.Name != ""
	case WaitingPhone:
		return d.Phone != ""
	case WaitingDate:
		return !d.Date.IsZero()
	case WaitingTime:
		return d.Time != ""
	case WaitingEmail:
		return d.Email != ""
	default:
		return true
	}
}

// QuestionStep is a step of the question intake.
type QuestionStep string

const WaitingQuestion QuestionStep = "waiting_question"

// QuestionIntake waits for the text of a client question.
type QuestionIntake struct {
	Step QuestionStep
}

func (QuestionIntake) Kind() Kind { return KindQuestionIntake }
func (QuestionIntake) sealed()    {}

func (s QuestionIntake) Consistent() bool { return s.Step == WaitingQuestion }

// AdminReplying means the admin's next message is the answer to a question.
type AdminReplying struct {
	QuestionID   int64
	TargetUserID int64
}

func (AdminReplying) Kind() Kind { return KindAdminReplying }
func (AdminReplying) sealed()    {}

func (s AdminReplying) Consistent() bool { return s.QuestionID > 0 && s.TargetUserID != 0 }

// PaymentStep is a step of the admin payment request.
type PaymentStep string

const (
	WaitingAmount PaymentStep = "waiting_amount"
	WaitingLink   PaymentStep = "waiting_link"
)

// AdminPayment collects the amount and an optional link for a payment request.
type AdminPayment struct {
	AppointmentID int64
	Step          PaymentStep
	Amount        float64
}

func (AdminPayment) Kind() Kind { return KindAdminPayment }
func (AdminPayment) sealed()    {}

func (s AdminPayment) Consistent() bool {
	switch s.Step {
	case WaitingAmount:
		return s.AppointmentID > 0
	case WaitingLink:
		return s.AppointmentID > 0 && s.Amount > 0
	default:
		return false
	}
}
