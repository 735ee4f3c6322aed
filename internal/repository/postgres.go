package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewbook/portal/internal/domain"
)

// Compile-time interface assertions.
var (
	_ UserRepository    = (*PostgresUserRepo)(nil)
	_ CompanyRepository = (*PostgresCompanyRepo)(nil)
)

const uniqueViolationCode = "23505"

// mapPGError translates store-level failures into domain sentinels.
func mapPGError(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return fmt.Errorf("%s: %w", op, domain.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// PostgresUserRepo implements UserRepository on a pgx pool.
type PostgresUserRepo struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{db: pool}
}

const userColumns = `id, firebase_id, email, name, photo_url, title, company_id, division, unit, created_at, updated_at`

func (r *PostgresUserRepo) GetByFirebaseID(ctx context.Context, firebaseID string) (domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE firebase_id = $1`, firebaseID)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapPGError(err, "get user")
	}
	return user, nil
}

const upsertUserSQL = `INSERT INTO users (id, firebase_id, email, name, photo_url)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (firebase_id) DO UPDATE SET
    email = EXCLUDED.email,
    name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE users.name END,
    photo_url = CASE WHEN EXCLUDED.photo_url <> '' THEN EXCLUDED.photo_url ELSE users.photo_url END,
    updated_at = now()
RETURNING ` + userColumns

func (r *PostgresUserRepo) Upsert(ctx context.Context, user domain.User) (domain.User, error) {
	row := r.db.QueryRow(ctx, upsertUserSQL,
		user.ID,
		user.FirebaseID,
		user.Email,
		user.Name,
		user.PhotoURL,
	)
	upserted, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapPGError(err, "upsert user")
	}
	return upserted, nil
}

func (r *PostgresUserRepo) Update(ctx context.Context, firebaseID string, patch domain.UserPatch) (domain.User, error) {
	sets := []string{"updated_at = now()"}
	args := []any{firebaseID}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.PhotoURL != nil {
		add("photo_url", *patch.PhotoURL)
	}
	switch {
	case patch.ClearCompany:
		sets = append(sets, "company_id = NULL")
	case patch.CompanyID != nil:
		add("company_id", *patch.CompanyID)
	}
	if patch.Division != nil {
		add("division", *patch.Division)
	}
	if patch.Unit != nil {
		add("unit", *patch.Unit)
	}

	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE firebase_id = $1 RETURNING %s`,
		strings.Join(sets, ", "), userColumns)

	row := r.db.QueryRow(ctx, query, args...)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapPGError(err, "update user")
	}
	return user, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		user      domain.User
		companyID sql.NullInt64
	)
	if err := row.Scan(
		&user.ID,
		&user.FirebaseID,
		&user.Email,
		&user.Name,
		&user.PhotoURL,
		&user.Title,
		&companyID,
		&user.Division,
		&user.Unit,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return domain.User{}, err
	}
	if companyID.Valid {
		val := companyID.Int64
		user.CompanyID = &val
	}
	return user, nil
}

// PostgresCompanyRepo implements CompanyRepository on a pgx pool.
type PostgresCompanyRepo struct {
	db *pgxpool.Pool
}

func NewPostgresCompanyRepo(pool *pgxpool.Pool) *PostgresCompanyRepo {
	return &PostgresCompanyRepo{db: pool}
}

const companyColumns = `id, name, domain, industry, size, logo_url,
apollo_id, website, linkedin_url, description, sub_industry, company_type,
employee_count, employee_range, founded_year, revenue,
hq_city, hq_state, hq_country, phone, twitter_url, facebook_url,
enriched_at, created_at, updated_at`

func (r *PostgresCompanyRepo) GetByID(ctx context.Context, id int64) (domain.Company, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)
	company, err := scanCompany(row)
	if err != nil {
		return domain.Company{}, mapPGError(err, "get company")
	}
	return company, nil
}

func (r *PostgresCompanyRepo) GetByNameOrDomain(ctx context.Context, name, companyDomain string) (domain.Company, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies
WHERE LOWER(name) = LOWER($1) OR (domain <> '' AND domain = $2)
ORDER BY id ASC
LIMIT 1`, name, companyDomain)
	company, err := scanCompany(row)
	if err != nil {
		return domain.Company{}, mapPGError(err, "get company by name or domain")
	}
	return company, nil
}

func (r *PostgresCompanyRepo) GetByApolloID(ctx context.Context, apolloID string) (domain.Company, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE apollo_id = $1`, apolloID)
	company, err := scanCompany(row)
	if err != nil {
		return domain.Company{}, mapPGError(err, "get company by apollo id")
	}
	return company, nil
}

func (r *PostgresCompanyRepo) SearchByName(ctx context.Context, query string, limit int) ([]domain.Company, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+companyColumns+` FROM companies
WHERE name ILIKE '%' || $1 || '%'
ORDER BY name ASC
LIMIT $2`, query, limit)
	if err != nil {
		return nil, mapPGError(err, "search companies")
	}
	defer rows.Close()

	companies := make([]domain.Company, 0, limit)
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, mapPGError(err, "search companies")
		}
		companies = append(companies, company)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPGError(err, "search companies")
	}
	return companies, nil
}

const insertCompanySQL = `INSERT INTO companies (
    id, name, domain, industry, size, logo_url,
    apollo_id, website, linkedin_url, description, sub_industry, company_type,
    employee_count, employee_range, founded_year, revenue,
    hq_city, hq_state, hq_country, phone, twitter_url, facebook_url, enriched_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
RETURNING ` + companyColumns

func (r *PostgresCompanyRepo) Create(ctx context.Context, company domain.Company) (domain.Company, error) {
	row := r.db.QueryRow(ctx, insertCompanySQL,
		company.ID,
		company.Name,
		company.Domain,
		company.Industry,
		company.Size,
		company.LogoURL,
		company.ApolloID,
		company.Website,
		company.LinkedinURL,
		company.Description,
		company.SubIndustry,
		company.CompanyType,
		nullableInt(company.EmployeeCount),
		company.EmployeeRange,
		nullableInt(company.FoundedYear),
		company.Revenue,
		company.HQCity,
		company.HQState,
		company.HQCountry,
		company.Phone,
		company.TwitterURL,
		company.FacebookURL,
		nullableTime(company.EnrichedAt),
	)
	created, err := scanCompany(row)
	if err != nil {
		return domain.Company{}, mapPGError(err, "create company")
	}
	return created, nil
}

const applyEnrichmentSQL = `UPDATE companies SET
    apollo_id = $2,
    name = $3,
    domain = $4,
    website = $5,
    linkedin_url = $6,
    description = $7,
    logo_url = $8,
    industry = $9,
    sub_industry = $10,
    company_type = $11,
    employee_count = $12,
    employee_range = $13,
    founded_year = $14,
    revenue = $15,
    hq_city = $16,
    hq_state = $17,
    hq_country = $18,
    phone = $19,
    twitter_url = $20,
    facebook_url = $21,
    enriched_at = $22,
    updated_at = now()
WHERE id = $1
RETURNING ` + companyColumns

func (r *PostgresCompanyRepo) ApplyEnrichment(ctx context.Context, id int64, e domain.Enrichment, enrichedAt time.Time) (domain.Company, error) {
	row := r.db.QueryRow(ctx, applyEnrichmentSQL,
		id,
		e.ApolloID,
		e.Name,
		e.Domain,
		e.Website,
		e.LinkedinURL,
		e.Description,
		e.LogoURL,
		e.Industry,
		e.SubIndustry,
		e.CompanyType,
		nullableInt(e.EmployeeCount),
		e.EmployeeRange,
		nullableInt(e.FoundedYear),
		e.Revenue,
		e.HQCity,
		e.HQState,
		e.HQCountry,
		e.Phone,
		e.TwitterURL,
		e.FacebookURL,
		enrichedAt,
	)
	company, err := scanCompany(row)
	if err != nil {
		return domain.Company{}, mapPGError(err, "apply enrichment")
	}
	return company, nil
}

func scanCompany(row pgx.Row) (domain.Company, error) {
	var (
		company       domain.Company
		employeeCount sql.NullInt32
		foundedYear   sql.NullInt32
		enrichedAt    sql.NullTime
	)
	if err := row.Scan(
		&company.ID,
		&company.Name,
		&company.Domain,
		&company.Industry,
		&company.Size,
		&company.LogoURL,
		&company.ApolloID,
		&company.Website,
		&company.LinkedinURL,
		&company.Description,
		&company.SubIndustry,
		&company.CompanyType,
		&employeeCount,
		&company.EmployeeRange,
		&foundedYear,
		&company.Revenue,
		&company.HQCity,
		&company.HQState,
		&company.HQCountry,
		&company.Phone,
		&company.TwitterURL,
		&company.FacebookURL,
		&enrichedAt,
		&company.CreatedAt,
		&company.UpdatedAt,
	); err != nil {
		return domain.Company{}, err
	}
	if employeeCount.Valid {
		val := int(employeeCount.Int32)
		company.EmployeeCount = &val
	}
	if foundedYear.Valid {
		val := int(foundedYear.Int32)
		company.FoundedYear = &val
	}
	if enrichedAt.Valid {
		val := enrichedAt.Time
		company.EnrichedAt = &val
	}
	return company, nil
}

func nullableInt(v *int) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*v), Valid: true}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
