package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"campus/identity/internal/model"
)

var (
	ErrDuplicateAccount = errors.New("account already exists")
	ErrAlreadyEnrolled  = errors.New("student already enrolled")
	ErrNotFound         = errors.New("record not found")
)

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateAccount inserts a new account. A concurrent signup racing on the same
// email loses at the unique index and surfaces as ErrDuplicateAccount.
func (s *Store) CreateAccount(ctx context.Context, account model.Account) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, email, password_hash, first_name, last_name, role, profile_image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, account.ID, account.Email, account.PasswordHash, account.FirstName, account.LastName, string(account.Role), account.ProfileImageURL, account.CreatedAt, account.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateAccount
	}
	return err
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (model.Account, error) {
	return s.scanAccount(s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, first_name, last_name, role, profile_image_url, created_at, updated_at
		FROM accounts
		WHERE email = $1
	`, email))
}

func (s *Store) GetAccountByID(ctx context.Context, accountID string) (model.Account, error) {
	return s.scanAccount(s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, first_name, last_name, role, profile_image_url, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`, accountID))
}

type AccountUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
}

func (s *Store) UpdateAccountInfo(ctx context.Context, accountID string, update AccountUpdate) (model.Account, error) {
	account, err := s.scanAccount(s.pool.QueryRow(ctx, `
		UPDATE accounts
		SET email = COALESCE($2, email),
		    first_name = COALESCE($3, first_name),
		    last_name = COALESCE($4, last_name),
		    updated_at = $5
		WHERE id = $1
		RETURNING id, email, password_hash, first_name, last_name, role, profile_image_url, created_at, updated_at
	`, accountID, update.Email, update.FirstName, update.LastName, time.Now().UTC()))
	if isUniqueViolation(err) {
		return model.Account{}, ErrDuplicateAccount
	}
	return account, err
}

func (s *Store) UpdateProfileImage(ctx context.Context, accountID, imageURL string) (model.Account, error) {
	return s.scanAccount(s.pool.QueryRow(ctx, `
		UPDATE accounts
		SET profile_image_url = $2, updated_at = $3
		WHERE id = $1
		RETURNING id, email, password_hash, first_name, last_name, role, profile_image_url, created_at, updated_at
	`, accountID, imageURL, time.Now().UTC()))
}

// ListAccounts returns accounts ordered by creation time, optionally filtered
// by role. An empty role matches everything.
func (s *Store) ListAccounts(ctx context.Context, role model.Role, limit int) ([]model.Account, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, email, password_hash, first_name, last_name, role, profile_image_url, created_at, updated_at
		FROM accounts
		WHERE ($1 = '' OR role = $1)
		ORDER BY created_at
		LIMIT $2
	`, string(role), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		account, err := s.scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (s *Store) CreateCourse(ctx context.Context, course model.Course) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO courses (id, code, title, teacher_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, course.ID, course.Code, course.Title, course.TeacherID, course.CreatedAt)
	return err
}

func (s *Store) GetCourse(ctx context.Context, courseID string) (model.Course, error) {
	var course model.Course
	err := s.pool.QueryRow(ctx, `
		SELECT id, code, title, teacher_id, created_at
		FROM courses
		WHERE id = $1
	`, courseID).Scan(&course.ID, &course.Code, &course.Title, &course.TeacherID, &course.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Course{}, ErrNotFound
	}
	return course, err
}

func (s *Store) ListCoursesByTeacher(ctx context.Context, teacherID string) ([]model.Course, error) {
	return s.queryCourses(ctx, `
		SELECT id, code, title, teacher_id, created_at
		FROM courses
		WHERE teacher_id = $1
		ORDER BY code
	`, teacherID)
}

func (s *Store) ListCoursesByStudent(ctx context.Context, studentID string) ([]model.Course, error) {
	return s.queryCourses(ctx, `
		SELECT c.id, c.code, c.title, c.teacher_id, c.created_at
		FROM courses c
		JOIN enrollments e ON e.course_id = c.id
		WHERE e.student_id = $1
		ORDER BY c.code
	`, studentID)
}

func (s *Store) EnrollStudent(ctx context.Context, enrollment model.Enrollment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO enrollments (course_id, student_id, grade, created_at)
		VALUES ($1, $2, $3, $4)
	`, enrollment.CourseID, enrollment.StudentID, enrollment.Grade, enrollment.CreatedAt)
	if isUniqueViolation(err) {
		return ErrAlreadyEnrolled
	}
	return err
}

func (s *Store) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	var enrolled bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM enrollments WHERE course_id = $1 AND student_id = $2)
	`, courseID, studentID).Scan(&enrolled)
	return enrolled, err
}

func (s *Store) ListGrades(ctx context.Context, studentID string) ([]model.GradeEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.code, c.title, e.grade
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		WHERE e.student_id = $1
		ORDER BY c.code
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grades []model.GradeEntry
	for rows.Next() {
		var entry model.GradeEntry
		if err := rows.Scan(&entry.CourseID, &entry.CourseCode, &entry.CourseTitle, &entry.Grade); err != nil {
			return nil, err
		}
		grades = append(grades, entry)
	}
	return grades, rows.Err()
}

func (s *Store) CreateAssignment(ctx context.Context, assignment model.Assignment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO assignments (id, course_id, title, due_at, posted_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, assignment.ID, assignment.CourseID, assignment.Title, assignment.DueAt, assignment.PostedBy, assignment.CreatedAt)
	return err
}

func (s *Store) ListAssignmentsByCourse(ctx context.Context, courseID string) ([]model.Assignment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, course_id, title, due_at, posted_by, created_at
		FROM assignments
		WHERE course_id = $1
		ORDER BY due_at
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		var assignment model.Assignment
		if err := rows.Scan(&assignment.ID, &assignment.CourseID, &assignment.Title, &assignment.DueAt, &assignment.PostedBy, &assignment.CreatedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}
	return assignments, rows.Err()
}

func (s *Store) queryCourses(ctx context.Context, query string, arg string) ([]model.Course, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var course model.Course
		if err := rows.Scan(&course.ID, &course.Code, &course.Title, &course.TeacherID, &course.CreatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	return courses, rows.Err()
}

func (s *Store) scanAccount(row pgx.Row) (model.Account, error) {
	var account model.Account
	var role string
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.FirstName,
		&account.LastName,
		&role,
		&account.ProfileImageURL,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, ErrNotFound
	}
	if err != nil {
		return model.Account{}, err
	}
	account.Role = model.Role(role)
	return account, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
