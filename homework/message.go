package homework

import "fmt"

// FailurePrefix starts every failure report sent to the chat.
const FailurePrefix = "Сбой в работе программы: "

// Submission is the typed view of a validated submission record.
type Submission struct {
	Name   string
	Status Status
}

// Message renders the notification text for a submission with a known status.
func (s Submission) Message() string {
	verdict, _ := Verdict(s.Status)
	return fmt.Sprintf(`Изменился статус проверки работы "%s". %s`, s.Name, verdict)
}

// ParseSubmission validates one record from the "homeworks" array.
//
// The record must be an object with a "homework_name" key ([ErrMissingKey]
// otherwise). A null or absent "status" yields [ErrMissingStatus]; a status
// outside the verdict table, or one that is not a string, yields
// [ErrUnexpectedStatus].
func ParseSubmission(record any) (Submission, error) {
	obj, ok := record.(map[string]any)
	if !ok {
		return Submission{}, &Error{
			Kind:   KindTypeMismatch,
			Detail: fmt.Sprintf("submission must be an object, got %s", jsonType(record)),
		}
	}

	rawName, ok := obj[keyHomeworkName]
	if !ok {
		return Submission{}, &Error{Kind: KindMissingKey, Key: keyHomeworkName, Detail: "key is absent from the submission"}
	}
	name, ok := rawName.(string)
	if !ok {
		return Submission{}, &Error{
			Kind:   KindTypeMismatch,
			Key:    keyHomeworkName,
			Detail: fmt.Sprintf("value must be a string, got %s", jsonType(rawName)),
		}
	}

	rawStatus := obj[keyStatus]
	if rawStatus == nil {
		return Submission{}, &Error{Kind: KindMissingStatus, Key: keyStatus, Detail: fmt.Sprintf("submission %q has no status", name)}
	}
	code, ok := rawStatus.(string)
	if !ok {
		return Submission{}, &Error{
			Kind:   KindUnexpectedStatus,
			Key:    keyStatus,
			Detail: fmt.Sprintf("status of %q must be a string, got %s", name, jsonType(rawStatus)),
		}
	}

	status := Status(code)
	if _, known := Verdict(status); !known {
		return Submission{}, &Error{Kind: KindUnexpectedStatus, Key: keyStatus, Detail: fmt.Sprintf("unknown status %q for %q", code, name)}
	}

	return Submission{Name: name, Status: status}, nil
}

// ParseStatus translates one submission record into its notification text.
// See [ParseSubmission] for the failure modes.
func ParseStatus(record any) (string, error) {
	sub, err := ParseSubmission(record)
	if err != nil {
		return "", err
	}
	return sub.Message(), nil
}

// FailureReport renders the chat text for a failed iteration.
func FailureReport(err error) string {
	return FailurePrefix + err.Error()
}
