package taskboard

import (
	"net/http"
	"net/mail"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"taskboard-api/internal/authmw"
)

// apiServer bundles the collaborators the handlers need. The principal is
// always taken from the request context and passed down explicitly.
type apiServer struct {
	store Store
	idp   identityProvider
}

func mustPrincipal(c *gin.Context) (authmw.Principal, bool) {
	p, ok := authmw.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "detail": "missing principal"})
		return authmw.Principal{}, false
	}
	return p, true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, fieldErr(name, "missing/invalid id"))
		return 0, false
	}
	return id, true
}

func (s *apiServer) handleRegister(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))

		return
	}

	info, token, err := s.idp.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":    token,
		"fullname": info.Fullname,
		"email":    info.Email,
		"user_id":  info.ID,
	})
}

func (s *apiServer) handleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))

		return
	}

	info, token, err := s.idp.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"fullname": info.Fullname,
		"email":    info.Email,
		"user_id":  info.ID,
	})
}

func (s *apiServer) handleEmailCheck(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		respondError(c, fieldErr("email", "No e-mail-address found."))

		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		respondError(c, fieldErr("email", "E-mail not valid."))

		return
	}

	u, err := s.store.UserByEmail(c.Request.Context(), email)
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, u.Info())
}

func (s *apiServer) handleListBoards(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	any, err := s.store.UserHasAnyBoard(c.Request.Context(), principal.ID)
	if err != nil {
		respondError(c, err)

		return
	}
	if !any {
		// a user on no board may not even query the list
		respondError(c, forbidden("You are not a member of any board."))

		return
	}

	boards, err := s.store.BoardSummaries(c.Request.Context(), principal.ID)
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, boards)
}

// checkMembersExist rejects member id lists referencing unknown users.
func (s *apiServer) checkMembersExist(c *gin.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	uniq := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		uniq[id] = struct{}{}
	}
	distinct := make([]int64, 0, len(uniq))
	for id := range uniq {
		distinct = append(distinct, id)
	}

	users, err := s.store.UsersByIDs(c.Request.Context(), distinct)
	if err != nil {
		return err
	}
	if len(users) != len(distinct) {
		return fieldErr("members", "Members must reference existing users.")
	}
	return nil
}

func (s *apiServer) handleCreateBoard(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var req CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))

		return
	}

	if err := s.checkMembersExist(c, req.Members); err != nil {
		respondError(c, err)

		return
	}

	// the creator becomes owner; members are set verbatim from the id list
	board, err := s.store.CreateBoard(c.Request.Context(), req.Title, principal.ID, req.Members)
	if err != nil {
		log.Printf("failed to create board: %v", err)
		respondError(c, err)

		return
	}

	c.JSON(http.StatusCreated, BoardSummary{
		ID:          board.BoardID,
		Title:       board.Title,
		MemberCount: len(board.MemberIDs),
		OwnerID:     board.OwnerID,
	})
}

func (s *apiServer) handleGetBoard(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	boardID, ok := pathID(c, "boardid")
	if !ok {
		return
	}

	board, err := s.store.BoardByID(c.Request.Context(), boardID)
	if err != nil {
		respondError(c, err)

		return
	}

	if !CanViewBoard(principal.ID, &board) {
		respondError(c, forbidden("You must be the owner or a member of this board."))

		return
	}

	detail, err := s.store.BoardDetail(c.Request.Context(), boardID)
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, detail)
}

func (s *apiServer) handleUpdateBoard(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	boardID, ok := pathID(c, "boardid")
	if !ok {
		return
	}

	board, err := s.store.BoardByID(c.Request.Context(), boardID)
	if err != nil {
		respondError(c, err)

		return
	}

	if !CanModifyBoard(principal.ID, &board) {
		respondError(c, forbidden("You must be the owner or a member of this board."))

		return
	}

	var req UpdateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))

		return
	}

	if req.Members != nil {
		if err := s.checkMembersExist(c, *req.Members); err != nil {
			respondError(c, err)

			return
		}
	}

	if err := s.store.UpdateBoard(c.Request.Context(), boardID, req.Title, req.Members); err != nil {
		respondError(c, err)

		return
	}

	title := board.Title
	if req.Title != nil {
		title = *req.Title
	}
	memberIDs := board.MemberIDs
	if req.Members != nil {
		memberIDs = *req.Members
	}

	owner, err := s.store.UserByID(c.Request.Context(), board.OwnerID)
	if err != nil {
		respondError(c, err)

		return
	}
	members, err := s.store.UsersByIDs(c.Request.Context(), memberIDs)
	if err != nil {
		respondError(c, err)

		return
	}
	infos := make([]UserInfo, 0, len(members))
	for _, m := range members {
		infos = append(infos, m.Info())
	}

	c.JSON(http.StatusOK, BoardUpdateView{
		ID:          boardID,
		Title:       title,
		OwnerData:   owner.Info(),
		MembersData: infos,
	})
}

func (s *apiServer) handleDeleteBoard(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	boardID, ok := pathID(c, "boardid")
	if !ok {
		return
	}

	board, err := s.store.BoardByID(c.Request.Context(), boardID)
	if err != nil {
		respondError(c, err)

		return
	}

	if !CanDeleteBoard(principal.ID, &board) {
		respondError(c, forbidden("Only the board owner may delete this board."))

		return
	}

	// tasks and comments underneath go with it
	if err := s.store.DeleteBoard(c.Request.Context(), boardID); err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
