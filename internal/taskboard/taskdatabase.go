package taskboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

func (s *pgStore) CreateTask(ctx context.Context, t Task) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (boardid, title, description, status, priority, assigneeid, reviewerid, due_date, createdby)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING taskid
	`, t.BoardID, t.Title, t.Description, t.Status, t.Priority,
		t.AssigneeID, t.ReviewerID, t.DueDate, t.CreatedBy).Scan(&id)
	return id, err
}

func (s *pgStore) TaskByID(ctx context.Context, id int64) (Task, error) {
	var t Task
	err := s.pool.QueryRow(ctx, `
		SELECT taskid, boardid, title, COALESCE(description, ''), status, priority,
		       assigneeid, reviewerid, to_char(due_date, 'YYYY-MM-DD'), createdby,
		       created_at, updated_at
		FROM tasks
		WHERE taskid = $1
	`, id).Scan(&t.TaskID, &t.BoardID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.AssigneeID, &t.ReviewerID, &t.DueDate, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, notFound("task")
	}
	if err != nil {
		return Task{}, err
	}
	return t, nil
}

const taskViewSelect = `
	SELECT t.taskid, t.boardid, t.title, COALESCE(t.description, ''), t.status, t.priority,
	       t.assigneeid, au.email, au.fullname,
	       t.reviewerid, ru.email, ru.fullname,
	       to_char(t.due_date, 'YYYY-MM-DD'),
	       (SELECT COUNT(*) FROM task_comments c WHERE c.taskid = t.taskid) AS comments_count
	FROM tasks t
	LEFT JOIN users au ON au.userid = t.assigneeid
	LEFT JOIN users ru ON ru.userid = t.reviewerid
`

func (s *pgStore) taskViews(ctx context.Context, where string, args ...any) ([]TaskView, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf("%s %s ORDER BY t.taskid", taskViewSelect, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]TaskView, 0, 8)
	for rows.Next() {
		var (
			tv                           TaskView
			assigneeID, reviewerID       *int64
			aEmail, aName, rEmail, rName *string
		)
		if err := rows.Scan(&tv.ID, &tv.Board, &tv.Title, &tv.Description, &tv.Status, &tv.Priority,
			&assigneeID, &aEmail, &aName,
			&reviewerID, &rEmail, &rName,
			&tv.DueDate, &tv.CommentsCount); err != nil {
			return nil, err
		}
		if assigneeID != nil {
			tv.Assignee = &UserInfo{ID: *assigneeID, Email: *aEmail, Fullname: *aName}
		}
		if reviewerID != nil {
			tv.Reviewer = &UserInfo{ID: *reviewerID, Email: *rEmail, Fullname: *rName}
		}
		out = append(out, tv)
	}
	return out, rows.Err()
}

func (s *pgStore) TaskView(ctx context.Context, id int64) (TaskView, error) {
	views, err := s.taskViews(ctx, `WHERE t.taskid = $1`, id)
	if err != nil {
		return TaskView{}, err
	}
	if len(views) == 0 {
		return TaskView{}, notFound("task")
	}
	return views[0], nil
}

func (s *pgStore) UpdateTask(ctx context.Context, id int64, fields UpdateTaskFields) error {
	sets := make([]string, 0, 8)
	args := make([]any, 0, 9)
	i := 1

	add := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i))
		args = append(args, val)
		i++
	}

	if fields.Title != nil {
		add("title", *fields.Title)
	}
	if fields.Description != nil {
		add("description", *fields.Description)
	}
	if fields.Status != nil {
		add("status", *fields.Status)
	}
	if fields.Priority != nil {
		add("priority", *fields.Priority)
	}
	if fields.Assignee.Set {
		add("assigneeid", fields.Assignee.Value)
	}
	if fields.Reviewer.Set {
		add("reviewerid", fields.Reviewer.Value)
	}
	if fields.DueDate != nil {
		add("due_date", *fields.DueDate)
	}

	if len(sets) == 0 {
		return fieldErr("", "provide fields to update")
	}
	sets = append(sets, "updated_at = now()")

	args = append(args, id)
	q := fmt.Sprintf("UPDATE tasks SET %s WHERE taskid = $%d", strings.Join(sets, ", "), i)

	ct, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return notFound("task")
	}
	return nil
}

// DeleteTask removes the task; its comments follow through the FK cascade.
func (s *pgStore) DeleteTask(ctx context.Context, id int64) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE taskid = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return notFound("task")
	}
	return nil
}

func (s *pgStore) TasksByAssignee(ctx context.Context, userID int64) ([]TaskView, error) {
	return s.taskViews(ctx, `WHERE t.assigneeid = $1`, userID)
}

func (s *pgStore) TasksByReviewer(ctx context.Context, userID int64) ([]TaskView, error) {
	return s.taskViews(ctx, `WHERE t.reviewerid = $1`, userID)
}

func (s *pgStore) CreateComment(ctx context.Context, taskID, authorID int64, content string) (CommentView, error) {
	var cv CommentView
	err := s.pool.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO task_comments (taskid, authorid, content)
			VALUES ($1, $2, $3)
			RETURNING commentid, authorid, content, created_at
		)
		SELECT i.commentid, i.created_at, u.fullname, i.content
		FROM inserted i
		JOIN users u ON u.userid = i.authorid
	`, taskID, authorID, content).Scan(&cv.ID, &cv.CreatedAt, &cv.Author, &cv.Content)
	return cv, err
}

func (s *pgStore) CommentsByTask(ctx context.Context, taskID int64) ([]CommentView, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.commentid, c.created_at, u.fullname, c.content
		FROM task_comments c
		JOIN users u ON u.userid = c.authorid
		WHERE c.taskid = $1
		ORDER BY c.created_at ASC, c.commentid ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CommentView, 0, 8)
	for rows.Next() {
		var cv CommentView
		if err := rows.Scan(&cv.ID, &cv.CreatedAt, &cv.Author, &cv.Content); err != nil {
			return nil, err
		}
		out = append(out, cv)
	}
	return out, rows.Err()
}

func (s *pgStore) CommentByID(ctx context.Context, taskID, commentID int64) (Comment, error) {
	var cm Comment
	err := s.pool.QueryRow(ctx, `
		SELECT commentid, taskid, authorid, content, created_at
		FROM task_comments
		WHERE commentid = $1 AND taskid = $2
	`, commentID, taskID).Scan(&cm.CommentID, &cm.TaskID, &cm.AuthorID, &cm.Content, &cm.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, notFound("comment")
	}
	if err != nil {
		return Comment{}, err
	}
	return cm, nil
}

func (s *pgStore) DeleteComment(ctx context.Context, commentID int64) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM task_comments WHERE commentid = $1`, commentID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return notFound("comment")
	}
	return nil
}
