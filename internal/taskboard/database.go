package taskboard

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type pgStore struct {
	pool *pgxpool.Pool
}

func newPgStore(pool *pgxpool.Pool) *pgStore {
	return &pgStore{pool: pool}
}

func (s *pgStore) CreateUser(ctx context.Context, email, fullname, passwordHash string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, fullname, password_hash)
		VALUES ($1, $2, $3)
		RETURNING userid, email, fullname, password_hash, created_at
	`, email, fullname, passwordHash).Scan(&u.UserID, &u.Email, &u.Fullname, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return User{}, errDuplicateEmail
		}
		return User{}, err
	}
	return u, nil
}

func (s *pgStore) UserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, `
		SELECT userid, email, fullname, password_hash, created_at
		FROM users WHERE email = $1
	`, email))
}

func (s *pgStore) UserByID(ctx context.Context, id int64) (User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, `
		SELECT userid, email, fullname, password_hash, created_at
		FROM users WHERE userid = $1
	`, id))
}

func (s *pgStore) scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.UserID, &u.Email, &u.Fullname, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, notFound("user")
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *pgStore) UsersByIDs(ctx context.Context, ids []int64) ([]User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT userid, email, fullname, password_hash, created_at
		FROM users WHERE userid = ANY($1)
		ORDER BY userid
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]User, 0, len(ids))
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.UserID, &u.Email, &u.Fullname, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *pgStore) EnsureUser(ctx context.Context, email, fullname string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, fullname, password_hash)
		VALUES ($1, $2, '')
		ON CONFLICT (email) DO UPDATE
		SET fullname = COALESCE(NULLIF(EXCLUDED.fullname, ''), users.fullname)
		RETURNING userid, email, fullname, password_hash, created_at
	`, email, fullname).Scan(&u.UserID, &u.Email, &u.Fullname, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

func (s *pgStore) CreateBoard(ctx context.Context, title string, ownerID int64, memberIDs []int64) (Board, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Board{}, err
	}
	defer tx.Rollback(ctx)

	var b Board
	b.Title = title
	b.OwnerID = ownerID
	err = tx.QueryRow(ctx, `
		INSERT INTO boards (title, ownerid) VALUES ($1, $2)
		RETURNING boardid, created_at
	`, title, ownerID).Scan(&b.BoardID, &b.CreatedAt)
	if err != nil {
		return Board{}, err
	}

	if len(memberIDs) > 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO board_members (boardid, userid)
			SELECT $1, unnest($2::bigint[])
			ON CONFLICT DO NOTHING
		`, b.BoardID, memberIDs)
		if err != nil {
			return Board{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Board{}, err
	}
	b.MemberIDs = memberIDs
	return b, nil
}

func (s *pgStore) BoardByID(ctx context.Context, id int64) (Board, error) {
	var b Board
	err := s.pool.QueryRow(ctx, `
		SELECT b.boardid, b.title, b.ownerid, b.created_at,
		       COALESCE(array_agg(m.userid ORDER BY m.userid) FILTER (WHERE m.userid IS NOT NULL), '{}')
		FROM boards b
		LEFT JOIN board_members m ON m.boardid = b.boardid
		WHERE b.boardid = $1
		GROUP BY b.boardid
	`, id).Scan(&b.BoardID, &b.Title, &b.OwnerID, &b.CreatedAt, &b.MemberIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return Board{}, notFound("board")
	}
	if err != nil {
		return Board{}, err
	}
	return b, nil
}

func (s *pgStore) BoardSummaries(ctx context.Context, userID int64) ([]BoardSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
		  b.boardid,
		  b.title,
		  b.ownerid,
		  (SELECT COUNT(*) FROM board_members m WHERE m.boardid = b.boardid) AS member_count,
		  (SELECT COUNT(*) FROM tasks t WHERE t.boardid = b.boardid) AS ticket_count,
		  (SELECT COUNT(*) FROM tasks t WHERE t.boardid = b.boardid AND t.status = 'to-do') AS tasks_to_do_count,
		  (SELECT COUNT(*) FROM tasks t WHERE t.boardid = b.boardid AND t.priority = 'high') AS tasks_high_prio_count
		FROM boards b
		WHERE b.ownerid = $1
		   OR EXISTS (SELECT 1 FROM board_members m WHERE m.boardid = b.boardid AND m.userid = $1)
		ORDER BY b.boardid
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]BoardSummary, 0, 8)
	for rows.Next() {
		var bs BoardSummary
		if err := rows.Scan(&bs.ID, &bs.Title, &bs.OwnerID, &bs.MemberCount,
			&bs.TicketCount, &bs.TasksToDoCount, &bs.TasksHighPrioCount); err != nil {
			return nil, err
		}
		out = append(out, bs)
	}
	return out, rows.Err()
}

func (s *pgStore) BoardDetail(ctx context.Context, id int64) (BoardDetail, error) {
	b, err := s.BoardByID(ctx, id)
	if err != nil {
		return BoardDetail{}, err
	}
	members, err := s.memberInfos(ctx, id)
	if err != nil {
		return BoardDetail{}, err
	}
	tasks, err := s.taskViews(ctx, `WHERE t.boardid = $1`, id)
	if err != nil {
		return BoardDetail{}, err
	}
	return BoardDetail{
		ID:      b.BoardID,
		Title:   b.Title,
		OwnerID: b.OwnerID,
		Members: members,
		Tasks:   tasks,
	}, nil
}

func (s *pgStore) memberInfos(ctx context.Context, boardID int64) ([]UserInfo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.userid, u.email, u.fullname
		FROM board_members m
		JOIN users u ON u.userid = m.userid
		WHERE m.boardid = $1
		ORDER BY u.userid
	`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]UserInfo, 0, 8)
	for rows.Next() {
		var ui UserInfo
		if err := rows.Scan(&ui.ID, &ui.Email, &ui.Fullname); err != nil {
			return nil, err
		}
		out = append(out, ui)
	}
	return out, rows.Err()
}

// UpdateBoard applies the title and/or replaces the full membership set in
// one transaction. A nil memberIDs leaves members untouched; an empty slice
// removes them all.
func (s *pgStore) UpdateBoard(ctx context.Context, id int64, title *string, memberIDs *[]int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if title != nil {
		ct, err := tx.Exec(ctx, `UPDATE boards SET title = $1 WHERE boardid = $2`, *title, id)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return notFound("board")
		}
	}

	if memberIDs != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM board_members WHERE boardid = $1`, id); err != nil {
			return err
		}
		if len(*memberIDs) > 0 {
			_, err := tx.Exec(ctx, `
				INSERT INTO board_members (boardid, userid)
				SELECT $1, unnest($2::bigint[])
				ON CONFLICT DO NOTHING
			`, id, *memberIDs)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

// DeleteBoard removes the board; tasks and their comments go with it through
// the FK cascades, all in one statement.
func (s *pgStore) DeleteBoard(ctx context.Context, id int64) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM boards WHERE boardid = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return notFound("board")
	}
	return nil
}

func (s *pgStore) UserHasAnyBoard(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM boards b
			WHERE b.ownerid = $1
			   OR EXISTS (SELECT 1 FROM board_members m WHERE m.boardid = b.boardid AND m.userid = $1)
		)
	`, userID).Scan(&exists)
	return exists, err
}
