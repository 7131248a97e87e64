package taskboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (s *apiServer) handleCreateTask(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))

		return
	}

	board, err := s.store.BoardByID(c.Request.Context(), req.Board)
	if err != nil {
		respondError(c, err)

		return
	}

	if !CanCreateTask(principal.ID, &board) {
		respondError(c, forbidden("You must be a member of this board."))

		return
	}

	if err := ValidateAssignment(&board, req.AssigneeID, req.ReviewerID); err != nil {
		respondError(c, err)

		return
	}

	createdBy := principal.ID
	id, err := s.store.CreateTask(c.Request.Context(), Task{
		BoardID:     req.Board,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		ReviewerID:  req.ReviewerID,
		DueDate:     req.DueDate,
		CreatedBy:   &createdBy,
	})
	if err != nil {
		log.Printf("failed to create task: %v", err)
		respondError(c, err)

		return
	}

	view, err := s.store.TaskView(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusCreated, view)
}

func (s *apiServer) handleUpdateTask(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "taskid")
	if !ok {
		return
	}

	task, err := s.store.TaskByID(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, err)

		return
	}

	board, err := s.store.BoardByID(c.Request.Context(), task.BoardID)
	if err != nil {
		respondError(c, err)

		return
	}

	if !CanEditTask(principal.ID, &board) {
		respondError(c, forbidden("You must be a member of this board."))

		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))

		return
	}
	if req.empty() {
		respondError(c, fieldErr("", "provide fields to update"))

		return
	}
	if req.AssigneeID.Set && req.AssigneeID.Value != nil && *req.AssigneeID.Value <= 0 {
		respondError(c, fieldErr("assignee_id", "invalid value"))

		return
	}
	if req.ReviewerID.Set && req.ReviewerID.Value != nil && *req.ReviewerID.Value <= 0 {
		respondError(c, fieldErr("reviewer_id", "invalid value"))

		return
	}

	// membership is checked against the board the task lives on, at the
	// moment of this write, for exactly the references being written
	if err := ValidateAssignment(&board, req.AssigneeID.Value, req.ReviewerID.Value); err != nil {
		respondError(c, err)

		return
	}

	err = s.store.UpdateTask(c.Request.Context(), taskID, UpdateTaskFields{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Assignee:    req.AssigneeID,
		Reviewer:    req.ReviewerID,
		DueDate:     req.DueDate,
	})
	if err != nil {
		respondError(c, err)

		return
	}

	view, err := s.store.TaskView(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, view)
}

func (s *apiServer) handleDeleteTask(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "taskid")
	if !ok {
		return
	}

	task, err := s.store.TaskByID(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, err)

		return
	}

	board, err := s.store.BoardByID(c.Request.Context(), task.BoardID)
	if err != nil {
		respondError(c, err)

		return
	}

	if !CanDeleteTask(principal.ID, &board, &task) {
		respondError(c, forbidden("You must be the board owner or the creator of this task."))

		return
	}

	if err := s.store.DeleteTask(c.Request.Context(), taskID); err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *apiServer) handleAssignedTasks(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	tasks, err := s.store.TasksByAssignee(c.Request.Context(), principal.ID)
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, tasks)
}

func (s *apiServer) handleReviewingTasks(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	tasks, err := s.store.TasksByReviewer(c.Request.Context(), principal.ID)
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, tasks)
}

// commentBoard resolves the task from the URL and its board. The task lookup
// runs first: an unknown task is 404 before any membership evaluation.
func (s *apiServer) commentBoard(c *gin.Context, taskID int64) (Board, bool) {
	task, err := s.store.TaskByID(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, err)

		return Board{}, false
	}

	board, err := s.store.BoardByID(c.Request.Context(), task.BoardID)
	if err != nil {
		respondError(c, err)

		return Board{}, false
	}
	return board, true
}

func (s *apiServer) handleListComments(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "taskid")
	if !ok {
		return
	}

	board, ok := s.commentBoard(c, taskID)
	if !ok {
		return
	}

	if !CanAccessComments(principal.ID, &board) {
		respondError(c, forbidden("You must be a member of this board."))

		return
	}

	comments, err := s.store.CommentsByTask(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, comments)
}

func (s *apiServer) handleCreateComment(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "taskid")
	if !ok {
		return
	}

	board, ok := s.commentBoard(c, taskID)
	if !ok {
		return
	}

	if !CanAccessComments(principal.ID, &board) {
		respondError(c, forbidden("You must be a member of this board."))

		return
	}

	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))

		return
	}

	comment, err := s.store.CreateComment(c.Request.Context(), taskID, principal.ID, req.Content)
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusCreated, comment)
}

func (s *apiServer) handleDeleteComment(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "taskid")
	if !ok {
		return
	}
	commentID, ok := pathID(c, "commentid")
	if !ok {
		return
	}

	// scoped lookup: the comment must belong to the task in the URL
	comment, err := s.store.CommentByID(c.Request.Context(), taskID, commentID)
	if err != nil {
		respondError(c, err)

		return
	}

	if !CanDeleteComment(principal.ID, &comment) {
		respondError(c, forbidden("You must be the creator of this comment."))

		return
	}

	if err := s.store.DeleteComment(c.Request.Context(), commentID); err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
