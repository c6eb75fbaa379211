package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migration is one versioned schema change.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator applies the embedded migrations in order.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a migrator over the embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{conn: conn, migrations: GetMigrations(), tableName: "schema_migrations"}
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.conn.Pool().Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, m.tableName))
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.conn.Pool().Query(ctx, fmt.Sprintf("SELECT version, applied_at FROM %s", m.tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	out := make(map[int]time.Time)
	for rows.Next() {
		var v int
		var at time.Time
		if err := rows.Scan(&v, &at); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		out[v] = at
	}
	return out, rows.Err()
}

// Migrate applies every pending migration, each in its own transaction.
// It returns the number applied.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, mig := range m.migrations {
		if _, ok := done[mig.Version]; ok {
			continue
		}
		err := m.conn.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName), mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return n, fmt.Errorf("%w: version %d (%s): %v", ErrMigrationFailed, mig.Version, mig.Name, err)
		}
		n++
	}
	return n, nil
}

// Rollback reverts the most recent migration.
func (m *Migrator) Rollback(ctx context.Context) error {
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return err
	}

	last := 0
	for v := range done {
		if v > last {
			last = v
		}
	}
	if last == 0 {
		return nil
	}

	for _, mig := range m.migrations {
		if mig.Version != last {
			continue
		}
		return m.conn.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.DownSQL); err != nil {
				return fmt.Errorf("failed to roll back migration %d: %w", last, err)
			}
			_, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE version = $1", m.tableName), last)
			return err
		})
	}
	return fmt.Errorf("%w: unknown applied version %d", ErrMigrationFailed, last)
}

// Status lists every migration with whether it has been applied.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Migration, len(m.migrations))
	copy(out, m.migrations)
	for i := range out {
		if at, ok := done[out[i].Version]; ok {
			out[i].IsApplied = true
			out[i].AppliedAt = at
		}
	}
	return out, nil
}

// GetMigrations returns the embedded migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_profiles", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_grievances", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_academics", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "create_opportunities", UpSQL: migration004Up, DownSQL: migration004Down},
		{Version: 5, Name: "create_campus_and_status", UpSQL: migration005Up, DownSQL: migration005Down},
		{Version: 6, Name: "create_community", UpSQL: migration006Up, DownSQL: migration006Down},
		{Version: 7, Name: "create_sos_alerts", UpSQL: migration007Up, DownSQL: migration007Down},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: PROFILES
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS profiles (
    id UUID PRIMARY KEY,
    full_name VARCHAR(120) NOT NULL,
    email VARCHAR(200) NOT NULL,
    role VARCHAR(20) NOT NULL,
    avatar_url TEXT NOT NULL DEFAULT '',
    cgpa NUMERIC(4,2),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_role CHECK (role IN ('Student', 'Faculty', 'Authority', 'Admin'))
);

CREATE INDEX IF NOT EXISTS idx_profiles_role_created ON profiles(role, created_at);
CREATE INDEX IF NOT EXISTS idx_profiles_email ON profiles(lower(email));
`

const migration001Down = `DROP TABLE IF EXISTS profiles;`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: GRIEVANCES
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS grievances (
    id UUID PRIMARY KEY,
    title VARCHAR(200) NOT NULL,
    category VARCHAR(30) NOT NULL,
    priority VARCHAR(10) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'Submitted',
    date DATE NOT NULL,
    description TEXT NOT NULL,
    location VARCHAR(200) NOT NULL DEFAULT '',
    votes INTEGER NOT NULL DEFAULT 0,
    is_anonymous BOOLEAN NOT NULL DEFAULT FALSE,
    reporter_id UUID,
    reporter_token CHAR(64),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_status CHECK (status IN ('Submitted', 'Under Review', 'In Progress', 'Resolved')),
    CONSTRAINT valid_priority CHECK (priority IN ('Low', 'Medium', 'High', 'Urgent')),
    CONSTRAINT valid_votes CHECK (votes >= 0),
    CONSTRAINT anonymous_has_no_reporter CHECK (NOT is_anonymous OR reporter_id IS NULL)
);

CREATE INDEX IF NOT EXISTS idx_grievances_created ON grievances(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_grievances_status_created ON grievances(status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_grievances_reporter ON grievances(reporter_id) WHERE reporter_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_grievances_token ON grievances(reporter_token) WHERE reporter_token IS NOT NULL;
`

const migration002Down = `DROP TABLE IF EXISTS grievances;`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: ACADEMICS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS courses (
    id UUID PRIMARY KEY,
    code VARCHAR(20) NOT NULL UNIQUE,
    name VARCHAR(200) NOT NULL,
    credits INTEGER NOT NULL DEFAULT 0,
    attended INTEGER NOT NULL DEFAULT 0,
    total_classes INTEGER NOT NULL DEFAULT 0,

    CONSTRAINT valid_attendance CHECK (attended >= 0 AND total_classes >= 0)
);

CREATE TABLE IF NOT EXISTS resources (
    id UUID PRIMARY KEY,
    title VARCHAR(200) NOT NULL,
    type VARCHAR(5) NOT NULL,
    size VARCHAR(20) NOT NULL,
    uploaded_by VARCHAR(120) NOT NULL,
    url TEXT NOT NULL DEFAULT '#',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_type CHECK (type IN ('PDF', 'DOC', 'PPT'))
);

CREATE INDEX IF NOT EXISTS idx_resources_created ON resources(created_at DESC);

CREATE TABLE IF NOT EXISTS assignments (
    id UUID PRIMARY KEY,
    title VARCHAR(200) NOT NULL,
    course_code VARCHAR(20) NOT NULL,
    due_date TIMESTAMPTZ NOT NULL,
    type VARCHAR(30) NOT NULL DEFAULT 'Assignment'
);

CREATE INDEX IF NOT EXISTS idx_assignments_due ON assignments(due_date);
`

const migration003Down = `
DROP TABLE IF EXISTS assignments;
DROP TABLE IF EXISTS resources;
DROP TABLE IF EXISTS courses;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: OPPORTUNITIES
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
CREATE TABLE IF NOT EXISTS opportunities (
    id UUID PRIMARY KEY,
    title VARCHAR(200) NOT NULL,
    professor VARCHAR(120) NOT NULL,
    type VARCHAR(20) NOT NULL,
    deadline DATE NOT NULL,
    stipend VARCHAR(60) NOT NULL DEFAULT 'Unpaid',
    tags TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_type CHECK (type IN ('Internship', 'Research', 'Project'))
);

CREATE INDEX IF NOT EXISTS idx_opportunities_deadline ON opportunities(deadline);

CREATE TABLE IF NOT EXISTS applications (
    id UUID PRIMARY KEY,
    opportunity_id UUID NOT NULL REFERENCES opportunities(id) ON DELETE CASCADE,
    user_id UUID NOT NULL,
    user_name VARCHAR(120) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT one_application_per_user UNIQUE (opportunity_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_applications_user ON applications(user_id);
`

const migration004Down = `
DROP TABLE IF EXISTS applications;
DROP TABLE IF EXISTS opportunities;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 005: CAMPUS MAP AND SYSTEM STATUS
// ══════════════════════════════════════════════════════════════════════════════

const migration005Up = `
CREATE TABLE IF NOT EXISTS locations (
    id UUID PRIMARY KEY,
    name VARCHAR(120) NOT NULL,
    type VARCHAR(40) NOT NULL DEFAULT '',
    lat DOUBLE PRECISION NOT NULL,
    lng DOUBLE PRECISION NOT NULL,
    description TEXT NOT NULL DEFAULT '',

    CONSTRAINT valid_lat CHECK (lat BETWEEN -90 AND 90),
    CONSTRAINT valid_lng CHECK (lng BETWEEN -180 AND 180)
);

CREATE TABLE IF NOT EXISTS system_status (
    id VARCHAR(40) PRIMARY KEY,
    name VARCHAR(120) NOT NULL,
    status VARCHAR(20) NOT NULL,
    health INTEGER NOT NULL DEFAULT 100,
    checked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_component_status CHECK (status IN ('Operational', 'Degraded', 'Down')),
    CONSTRAINT valid_health CHECK (health BETWEEN 0 AND 100)
);
`

const migration005Down = `
DROP TABLE IF EXISTS system_status;
DROP TABLE IF EXISTS locations;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 006: COMMUNITY
// ══════════════════════════════════════════════════════════════════════════════

const migration006Up = `
CREATE TABLE IF NOT EXISTS posts (
    id UUID PRIMARY KEY,
    title VARCHAR(200) NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    author_id UUID NOT NULL,
    author_name VARCHAR(120) NOT NULL,
    author_role VARCHAR(20) NOT NULL,
    likes INTEGER NOT NULL DEFAULT 0,
    is_flagged BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_posts_flagged ON posts(is_flagged) WHERE is_flagged;

CREATE TABLE IF NOT EXISTS comments (
    id UUID PRIMARY KEY,
    post_id UUID NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
    content TEXT NOT NULL,
    author_id UUID NOT NULL,
    author_name VARCHAR(120) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_comments_post_created ON comments(post_id, created_at);

CREATE TABLE IF NOT EXISTS banned_users (
    email VARCHAR(200) PRIMARY KEY,
    reason TEXT NOT NULL,
    banned_by VARCHAR(120) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const migration006Down = `
DROP TABLE IF EXISTS banned_users;
DROP TABLE IF EXISTS comments;
DROP TABLE IF EXISTS posts;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 007: SOS ALERTS
// ══════════════════════════════════════════════════════════════════════════════

const migration007Up = `
CREATE TABLE IF NOT EXISTS sos_alerts (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL,
    user_name VARCHAR(120) NOT NULL,
    lat DOUBLE PRECISION NOT NULL,
    lng DOUBLE PRECISION NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_sos_status CHECK (status IN ('pending', 'dispatched', 'failed', 'cancelled'))
);

CREATE INDEX IF NOT EXISTS idx_sos_alerts_user_created ON sos_alerts(user_id, created_at DESC);
`

const migration007Down = `DROP TABLE IF EXISTS sos_alerts;`
