package homework

// Status is a review status code as returned by the review API.
type Status string

const (
	// StatusApproved means the reviewer accepted the work.
	StatusApproved Status = "approved"

	// StatusReviewing means a reviewer has picked the work up.
	StatusReviewing Status = "reviewing"

	// StatusRejected means the reviewer returned the work with remarks.
	StatusRejected Status = "rejected"
)

// String returns the status code.
func (s Status) String() string {
	return string(s)
}

// verdicts is closed: only these three codes are recognised.
var verdicts = map[Status]string{
	StatusApproved:  "Работа проверена: ревьюеру всё понравилось. Ура!",
	StatusReviewing: "Работа взята на проверку ревьюером.",
	StatusRejected:  "Работа проверена: у ревьюера есть замечания.",
}

// Verdict returns the fixed human-readable text for a status code.
// The second result is false for codes outside the verdict table.
func Verdict(s Status) (string, bool) {
	v, ok := verdicts[s]
	return v, ok
}

// Statuses returns the known status codes in a stable order.
func Statuses() []Status {
	return []Status{StatusApproved, StatusReviewing, StatusRejected}
}
