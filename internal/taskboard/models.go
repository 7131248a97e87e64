package taskboard

import (
	"encoding/json"
	"time"
)

const (
	StatusToDo       = "to-do"
	StatusInProgress = "in-progress"
	StatusReview     = "review"
	StatusDone       = "done"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

func validStatus(status string) bool {
	return status == StatusToDo || status == StatusInProgress ||
		status == StatusReview || status == StatusDone
}

func validPriority(priority string) bool {
	return priority == PriorityLow || priority == PriorityMedium || priority == PriorityHigh
}

type User struct {
	UserID       int64
	Email        string
	Fullname     string
	PasswordHash string
	CreatedAt    time.Time
}

// UserInfo is the nested user shape shared by every response that embeds a user.
type UserInfo struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Fullname string `json:"fullname"`
}

func (u User) Info() UserInfo {
	return UserInfo{ID: u.UserID, Email: u.Email, Fullname: u.Fullname}
}

// Board carries the authorization-relevant state: the owner and the full
// membership set of the board.
type Board struct {
	BoardID   int64
	Title     string
	OwnerID   int64
	MemberIDs []int64
	CreatedAt time.Time
}

type Task struct {
	TaskID      int64
	BoardID     int64
	Title       string
	Description string
	Status      string
	Priority    string
	AssigneeID  *int64
	ReviewerID  *int64
	DueDate     *string
	CreatedBy   *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Comment struct {
	CommentID int64
	TaskID    int64
	AuthorID  int64
	Content   string
	CreatedAt time.Time
}

// Output projections. One explicit shape per use case instead of a single
// serializer trying to serve them all.

type BoardSummary struct {
	ID                 int64  `json:"id"`
	Title              string `json:"title"`
	MemberCount        int    `json:"member_count"`
	TicketCount        int    `json:"ticket_count"`
	TasksToDoCount     int    `json:"tasks_to_do_count"`
	TasksHighPrioCount int    `json:"tasks_high_prio_count"`
	OwnerID            int64  `json:"owner_id"`
}

type BoardDetail struct {
	ID      int64      `json:"id"`
	Title   string     `json:"title"`
	OwnerID int64      `json:"owner_id"`
	Members []UserInfo `json:"members"`
	Tasks   []TaskView `json:"tasks"`
}

type BoardUpdateView struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	OwnerData   UserInfo   `json:"owner_data"`
	MembersData []UserInfo `json:"members_data"`
}

type TaskView struct {
	ID            int64     `json:"id"`
	Board         int64     `json:"board"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Status        string    `json:"status"`
	Priority      string    `json:"priority"`
	Assignee      *UserInfo `json:"assignee"`
	Reviewer      *UserInfo `json:"reviewer"`
	DueDate       *string   `json:"due_date"`
	CommentsCount int       `json:"comments_count"`
}

type CommentView struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
}

// Request bodies.

type RegisterRequest struct {
	Fullname         string `json:"fullname" binding:"required,max=255"`
	Email            string `json:"email" binding:"required,email"`
	Password         string `json:"password" binding:"required"`
	RepeatedPassword string `json:"repeated_password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CreateBoardRequest struct {
	Title   string  `json:"title" binding:"required,max=255"`
	Members []int64 `json:"members" binding:"omitempty,dive,gt=0"`
}

// UpdateBoardRequest is the allow-list of mutable board fields. Anything else
// submitted in the body is ignored.
type UpdateBoardRequest struct {
	Title   *string  `json:"title" binding:"omitempty,min=1,max=255"`
	Members *[]int64 `json:"members" binding:"omitempty,dive,gt=0"`
}

type CreateTaskRequest struct {
	Board       int64   `json:"board" binding:"required,gt=0"`
	Title       string  `json:"title" binding:"required,max=255"`
	Description string  `json:"description" binding:"max=2000"`
	Status      string  `json:"status" binding:"required,oneof=to-do in-progress review done"`
	Priority    string  `json:"priority" binding:"required,oneof=low medium high"`
	AssigneeID  *int64  `json:"assignee_id" binding:"omitempty,gt=0"`
	ReviewerID  *int64  `json:"reviewer_id" binding:"omitempty,gt=0"`
	DueDate     *string `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string    `json:"description" binding:"omitempty,max=2000"`
	Status      *string    `json:"status" binding:"omitempty,oneof=to-do in-progress review done"`
	Priority    *string    `json:"priority" binding:"omitempty,oneof=low medium high"`
	AssigneeID  OptionalID `json:"assignee_id"`
	ReviewerID  OptionalID `json:"reviewer_id"`
	DueDate     *string    `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
}

func (r UpdateTaskRequest) empty() bool {
	return r.Title == nil && r.Description == nil && r.Status == nil &&
		r.Priority == nil && !r.AssigneeID.Set && !r.ReviewerID.Set && r.DueDate == nil
}

type CreateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// OptionalID distinguishes an absent field from an explicit null, so a PATCH
// can clear an assignee without touching one it never mentioned.
type OptionalID struct {
	Set   bool
	Value *int64
}

func (o *OptionalID) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

// UpdateTaskFields is the write set handed to the store after validation.
type UpdateTaskFields struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	Assignee    OptionalID
	Reviewer    OptionalID
	DueDate     *string
}
