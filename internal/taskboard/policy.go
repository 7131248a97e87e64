// Authorization rules for boards, tasks and comments.
//
// All functions are pure: they decide over already-fetched entities and take
// the principal explicitly, so every rule lives here instead of being
// scattered across handlers. A board's membership set is the authority
// boundary for everything beneath it.
package taskboard

// IsBoardMember reports whether the user sits in the board's members
// relation. Ownership alone does not imply membership.
func IsBoardMember(b *Board, userID int64) bool {
	for _, id := range b.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// CanViewBoard allows the owner or any member.
func CanViewBoard(principal int64, b *Board) bool {
	return b.OwnerID == principal || IsBoardMember(b, principal)
}

// CanModifyBoard gates title/member updates. Authoritative rule: same circle
// as viewing, owner or member.
func CanModifyBoard(principal int64, b *Board) bool {
	return CanViewBoard(principal, b)
}

// CanDeleteBoard allows only the owner.
func CanDeleteBoard(principal int64, b *Board) bool {
	return b.OwnerID == principal
}

// CanCreateTask requires membership of the target board.
func CanCreateTask(principal int64, b *Board) bool {
	return IsBoardMember(b, principal)
}

// CanEditTask requires membership of the board the task lives on.
func CanEditTask(principal int64, b *Board) bool {
	return IsBoardMember(b, principal)
}

// CanDeleteTask allows the board owner or the task's creator.
func CanDeleteTask(principal int64, b *Board, t *Task) bool {
	if b.OwnerID == principal {
		return true
	}
	return t.CreatedBy != nil && *t.CreatedBy == principal
}

// CanAccessComments gates listing and creating comments under a task.
func CanAccessComments(principal int64, b *Board) bool {
	return IsBoardMember(b, principal)
}

// CanDeleteComment allows only the author. Board owners and task creators
// hold no special rights over comments.
func CanDeleteComment(principal int64, cm *Comment) bool {
	return cm.AuthorID == principal
}

// ValidateAssignment checks that assignee and reviewer, where set, are
// current members of the task's board. Each violation is scoped to the field
// that caused it. The check runs on every write; references that went stale
// through later membership changes are left alone.
func ValidateAssignment(b *Board, assigneeID, reviewerID *int64) error {
	if assigneeID != nil && !IsBoardMember(b, *assigneeID) {
		return fieldErr("assignee_id", "Assignee must be a member of the board.")
	}
	if reviewerID != nil && !IsBoardMember(b, *reviewerID) {
		return fieldErr("reviewer_id", "Reviewer must be a member of the board.")
	}
	return nil
}
