package taskboard

import "context"

// Store is the persistence boundary the handlers talk to. The production
// implementation is pgStore over a pgx pool; tests swap in an in-memory fake.
//
// Store methods return errNotFound (or a wrapper satisfying errors.Is) when a
// referenced entity is absent and errDuplicateEmail on a unique-email
// conflict. Multi-row writes are atomic: a failure leaves no partial state.
type Store interface {
	// users
	CreateUser(ctx context.Context, email, fullname, passwordHash string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id int64) (User, error)
	UsersByIDs(ctx context.Context, ids []int64) ([]User, error)
	// EnsureUser provisions a row for an externally-authenticated identity,
	// returning the existing one when the email is already known.
	EnsureUser(ctx context.Context, email, fullname string) (User, error)

	// boards
	CreateBoard(ctx context.Context, title string, ownerID int64, memberIDs []int64) (Board, error)
	BoardByID(ctx context.Context, id int64) (Board, error)
	BoardSummaries(ctx context.Context, userID int64) ([]BoardSummary, error)
	BoardDetail(ctx context.Context, id int64) (BoardDetail, error)
	UpdateBoard(ctx context.Context, id int64, title *string, memberIDs *[]int64) error
	DeleteBoard(ctx context.Context, id int64) error
	UserHasAnyBoard(ctx context.Context, userID int64) (bool, error)

	// tasks
	CreateTask(ctx context.Context, t Task) (int64, error)
	TaskByID(ctx context.Context, id int64) (Task, error)
	TaskView(ctx context.Context, id int64) (TaskView, error)
	UpdateTask(ctx context.Context, id int64, fields UpdateTaskFields) error
	DeleteTask(ctx context.Context, id int64) error
	TasksByAssignee(ctx context.Context, userID int64) ([]TaskView, error)
	TasksByReviewer(ctx context.Context, userID int64) ([]TaskView, error)

	// comments
	CreateComment(ctx context.Context, taskID, authorID int64, content string) (CommentView, error)
	CommentsByTask(ctx context.Context, taskID int64) ([]CommentView, error)
	CommentByID(ctx context.Context, taskID, commentID int64) (Comment, error)
	DeleteComment(ctx context.Context, commentID int64) error
}
