package review

// Composite ids are the primary keys of their records. Deriving them from
// the foreign references is what makes "at most one per pair" hold
// without a separate uniqueness check.

func EvaluationID(userID, eventID string) string {
	return userID + "-" + eventID
}

func CorrectionID(userID, eventID string) string {
	return userID + "-" + eventID
}

func PermissionID(userID, sessionID string) string {
	return userID + "-" + sessionID
}
