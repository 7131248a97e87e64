package taskboard

import (
	"context"
	"sort"
	"sync"
	"time"
)

// fakeStore is an in-memory Store used by the handler tests. It mirrors the
// documented store contract, including the cascade semantics of the real
// schema.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]User
	boards   map[int64]Board
	tasks    map[int64]Task
	comments map[int64]Comment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[int64]User),
		boards:   make(map[int64]Board),
		tasks:    make(map[int64]Task),
		comments: make(map[int64]Comment),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) CreateUser(_ context.Context, email, fullname, passwordHash string) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == email {
			return User{}, errDuplicateEmail
		}
	}
	u := User{UserID: f.id(), Email: email, Fullname: fullname, PasswordHash: passwordHash, CreatedAt: time.Now()}
	f.users[u.UserID] = u
	return u, nil
}

func (f *fakeStore) UserByEmail(_ context.Context, email string) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, notFound("user")
}

func (f *fakeStore) UserByID(_ context.Context, id int64) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return User{}, notFound("user")
	}
	return u, nil
}

func (f *fakeStore) UsersByIDs(_ context.Context, ids []int64) ([]User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]User, 0, len(ids))
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (f *fakeStore) EnsureUser(ctx context.Context, email, fullname string) (User, error) {
	if u, err := f.UserByEmail(ctx, email); err == nil {
		if fullname != "" && fullname != u.Fullname {
			f.mu.Lock()
			u.Fullname = fullname
			f.users[u.UserID] = u
			f.mu.Unlock()
		}
		return u, nil
	}
	return f.CreateUser(ctx, email, fullname, "")
}

func (f *fakeStore) CreateBoard(_ context.Context, title string, ownerID int64, memberIDs []int64) (Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b := Board{
		BoardID:   f.id(),
		Title:     title,
		OwnerID:   ownerID,
		MemberIDs: append([]int64(nil), memberIDs...),
		CreatedAt: time.Now(),
	}
	f.boards[b.BoardID] = b
	return b, nil
}

func (f *fakeStore) BoardByID(_ context.Context, id int64) (Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.boards[id]
	if !ok {
		return Board{}, notFound("board")
	}
	b.MemberIDs = append([]int64(nil), b.MemberIDs...)
	return b, nil
}

func (f *fakeStore) BoardSummaries(_ context.Context, userID int64) ([]BoardSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]BoardSummary, 0, len(f.boards))
	for _, b := range f.boards {
		if b.OwnerID != userID && !IsBoardMember(&b, userID) {
			continue
		}
		out = append(out, f.summaryLocked(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) summaryLocked(b Board) BoardSummary {
	bs := BoardSummary{ID: b.BoardID, Title: b.Title, MemberCount: len(b.MemberIDs), OwnerID: b.OwnerID}
	for _, t := range f.tasks {
		if t.BoardID != b.BoardID {
			continue
		}
		bs.TicketCount++
		if t.Status == StatusToDo {
			bs.TasksToDoCount++
		}
		if t.Priority == PriorityHigh {
			bs.TasksHighPrioCount++
		}
	}
	return bs
}

func (f *fakeStore) BoardDetail(_ context.Context, id int64) (BoardDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.boards[id]
	if !ok {
		return BoardDetail{}, notFound("board")
	}

	detail := BoardDetail{ID: b.BoardID, Title: b.Title, OwnerID: b.OwnerID, Members: []UserInfo{}, Tasks: []TaskView{}}
	for _, mid := range b.MemberIDs {
		if u, ok := f.users[mid]; ok {
			detail.Members = append(detail.Members, u.Info())
		}
	}
	sort.Slice(detail.Members, func(i, j int) bool { return detail.Members[i].ID < detail.Members[j].ID })

	for _, t := range f.tasks {
		if t.BoardID == id {
			detail.Tasks = append(detail.Tasks, f.taskViewLocked(t))
		}
	}
	sort.Slice(detail.Tasks, func(i, j int) bool { return detail.Tasks[i].ID < detail.Tasks[j].ID })
	return detail, nil
}

func (f *fakeStore) UpdateBoard(_ context.Context, id int64, title *string, memberIDs *[]int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.boards[id]
	if !ok {
		return notFound("board")
	}
	if title != nil {
		b.Title = *title
	}
	if memberIDs != nil {
		b.MemberIDs = append([]int64(nil), (*memberIDs)...)
	}
	f.boards[id] = b
	return nil
}

func (f *fakeStore) DeleteBoard(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.boards[id]; !ok {
		return notFound("board")
	}
	delete(f.boards, id)
	for tid, t := range f.tasks {
		if t.BoardID != id {
			continue
		}
		delete(f.tasks, tid)
		for cid, cm := range f.comments {
			if cm.TaskID == tid {
				delete(f.comments, cid)
			}
		}
	}
	return nil
}

func (f *fakeStore) UserHasAnyBoard(_ context.Context, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, b := range f.boards {
		if b.OwnerID == userID || IsBoardMember(&b, userID) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateTask(_ context.Context, t Task) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t.TaskID = f.id()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	f.tasks[t.TaskID] = t
	return t.TaskID, nil
}

func (f *fakeStore) TaskByID(_ context.Context, id int64) (Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tasks[id]
	if !ok {
		return Task{}, notFound("task")
	}
	return t, nil
}

func (f *fakeStore) taskViewLocked(t Task) TaskView {
	tv := TaskView{
		ID:          t.TaskID,
		Board:       t.BoardID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
	}
	if t.AssigneeID != nil {
		if u, ok := f.users[*t.AssigneeID]; ok {
			info := u.Info()
			tv.Assignee = &info
		}
	}
	if t.ReviewerID != nil {
		if u, ok := f.users[*t.ReviewerID]; ok {
			info := u.Info()
			tv.Reviewer = &info
		}
	}
	for _, cm := range f.comments {
		if cm.TaskID == t.TaskID {
			tv.CommentsCount++
		}
	}
	return tv
}

func (f *fakeStore) TaskView(_ context.Context, id int64) (TaskView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tasks[id]
	if !ok {
		return TaskView{}, notFound("task")
	}
	return f.taskViewLocked(t), nil
}

func (f *fakeStore) UpdateTask(_ context.Context, id int64, fields UpdateTaskFields) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tasks[id]
	if !ok {
		return notFound("task")
	}
	if fields.Title != nil {
		t.Title = *fields.Title
	}
	if fields.Description != nil {
		t.Description = *fields.Description
	}
	if fields.Status != nil {
		t.Status = *fields.Status
	}
	if fields.Priority != nil {
		t.Priority = *fields.Priority
	}
	if fields.Assignee.Set {
		t.AssigneeID = fields.Assignee.Value
	}
	if fields.Reviewer.Set {
		t.ReviewerID = fields.Reviewer.Value
	}
	if fields.DueDate != nil {
		t.DueDate = fields.DueDate
	}
	t.UpdatedAt = time.Now()
	f.tasks[id] = t
	return nil
}

func (f *fakeStore) DeleteTask(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.tasks[id]; !ok {
		return notFound("task")
	}
	delete(f.tasks, id)
	for cid, cm := range f.comments {
		if cm.TaskID == id {
			delete(f.comments, cid)
		}
	}
	return nil
}

func (f *fakeStore) tasksWhere(match func(Task) bool) []TaskView {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]TaskView, 0, 4)
	for _, t := range f.tasks {
		if match(t) {
			out = append(out, f.taskViewLocked(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeStore) TasksByAssignee(_ context.Context, userID int64) ([]TaskView, error) {
	return f.tasksWhere(func(t Task) bool { return t.AssigneeID != nil && *t.AssigneeID == userID }), nil
}

func (f *fakeStore) TasksByReviewer(_ context.Context, userID int64) ([]TaskView, error) {
	return f.tasksWhere(func(t Task) bool { return t.ReviewerID != nil && *t.ReviewerID == userID }), nil
}

func (f *fakeStore) CreateComment(_ context.Context, taskID, authorID int64, content string) (CommentView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cm := Comment{CommentID: f.id(), TaskID: taskID, AuthorID: authorID, Content: content, CreatedAt: time.Now()}
	f.comments[cm.CommentID] = cm

	author := f.users[authorID]
	return CommentView{ID: cm.CommentID, CreatedAt: cm.CreatedAt, Author: author.Fullname, Content: cm.Content}, nil
}

func (f *fakeStore) CommentsByTask(_ context.Context, taskID int64) ([]CommentView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]CommentView, 0, 4)
	for _, cm := range f.comments {
		if cm.TaskID != taskID {
			continue
		}
		author := f.users[cm.AuthorID]
		out = append(out, CommentView{ID: cm.CommentID, CreatedAt: cm.CreatedAt, Author: author.Fullname, Content: cm.Content})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeStore) CommentByID(_ context.Context, taskID, commentID int64) (Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cm, ok := f.comments[commentID]
	if !ok || cm.TaskID != taskID {
		return Comment{}, notFound("comment")
	}
	return cm, nil
}

func (f *fakeStore) DeleteComment(_ context.Context, commentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.comments[commentID]; !ok {
		return notFound("comment")
	}
	delete(f.comments, commentID)
	return nil
}
