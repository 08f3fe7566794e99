package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/aiqaio/evalserver/internal/domain"
	"github.com/aiqaio/evalserver/internal/observability"
	"github.com/aiqaio/evalserver/internal/query"
)

// NewPostgresStoresFromDSN creates Postgres-backed stores using a DSN
// (spec.md section 6: DATABASE_URL). tracer may be nil, in which case
// queries run untraced.
func NewPostgresStoresFromDSN(dsn string, config *PostgresConfig, tracer *observability.Tracer) (StoreSet, error) {
	if strings.TrimSpace(dsn) == "" {
		return StoreSet{}, fmt.Errorf("dsn is required")
	}
	if config == nil {
		config = DefaultPostgresConfig()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return StoreSet{}, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return StoreSet{}, fmt.Errorf("ping database: %w", err)
	}

	return NewPostgresStores(db, tracer), nil
}

// NewPostgresStores wraps an already-open *sql.DB (used directly by tests
// against go-sqlmock, which never goes through a real DSN). tracer may be
// nil, in which case queries run untraced.
func NewPostgresStores(db *sql.DB, tracer *observability.Tracer) StoreSet {
	return StoreSet{
		Organisations: &postgresOrganisationStore{db: db, tracer: tracer},
		APIKeys:       &postgresAPIKeyStore{db: db, tracer: tracer},
		Datasets:      &postgresDatasetStore{db: db, tracer: tracer},
		Experiments:   &postgresExperimentStore{db: db, tracer: tracer},
		closer:        db.Close,
	}
}

// traceQuery starts a database span for op against table if tracer is
// configured, returning the span-carrying context and its closer. A nil
// tracer is a no-op so every store method can call this unconditionally.
func traceQuery(ctx context.Context, tracer *observability.Tracer, op, table string) (context.Context, func()) {
	if tracer == nil {
		return ctx, func() {}
	}
	ctx, span := tracer.TraceDatabaseQuery(ctx, op, table)
	return ctx, span.End
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "23505")
}

// --- Organisations ---------------------------------------------------------

type postgresOrganisationStore struct {
	db     *sql.DB
	tracer *observability.Tracer
}

func (s *postgresOrganisationStore) Create(ctx context.Context, org *domain.Organisation) error {
	if org == nil || org.ID == "" {
		return fmt.Errorf("organisation is required")
	}
	ctx, end := traceQuery(ctx, s.tracer, "insert", "organisations")
	defer end()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO organisations (id, name, tier, members, rate_limit_per_hour, retention_days, max_members, max_datasets, experiment_retention_days, max_examples_per_dataset, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		org.ID, org.Name, string(org.Tier), pq.Array(org.Members),
		org.RateLimitPerHour, org.RetentionDays, org.MaxMembers, org.MaxDatasets,
		org.ExperimentRetentionDays, org.MaxExamplesPerDataset, org.CreatedAt, org.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create organisation: %w", err)
	}
	return nil
}

func (s *postgresOrganisationStore) Get(ctx context.Context, id string) (*domain.Organisation, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	ctx, end := traceQuery(ctx, s.tracer, "select", "organisations")
	defer end()
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, tier, members, rate_limit_per_hour, retention_days, max_members, max_datasets, experiment_retention_days, max_examples_per_dataset, created_at, updated_at
		 FROM organisations WHERE id = $1`, id)

	var org domain.Organisation
	var tier string
	var members []string
	if err := row.Scan(
		&org.ID, &org.Name, &tier, pq.Array(&members),
		&org.RateLimitPerHour, &org.RetentionDays, &org.MaxMembers, &org.MaxDatasets,
		&org.ExperimentRetentionDays, &org.MaxExamplesPerDataset, &org.CreatedAt, &org.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get organisation: %w", err)
	}
	org.Tier = domain.Tier(tier)
	org.Members = members
	return &org, nil
}

func (s *postgresOrganisationStore) Update(ctx context.Context, org *domain.Organisation) error {
	if org == nil || org.ID == "" {
		return fmt.Errorf("organisation is required")
	}
	ctx, end := traceQuery(ctx, s.tracer, "update", "organisations")
	defer end()
	res, err := s.db.ExecContext(ctx,
		`UPDATE organisations
		 SET name = $1, tier = $2, members = $3, rate_limit_per_hour = $4, retention_days = $5,
		     max_members = $6, max_datasets = $7, experiment_retention_days = $8, max_examples_per_dataset = $9, updated_at = $10
		 WHERE id = $11`,
		org.Name, string(org.Tier), pq.Array(org.Members), org.RateLimitPerHour, org.RetentionDays,
		org.MaxMembers, org.MaxDatasets, org.ExperimentRetentionDays, org.MaxExamplesPerDataset, org.UpdatedAt, org.ID,
	)
	if err != nil {
		return fmt.Errorf("update organisation: %w", err)
	}
	return requireRowsAffected(res, "update organisation")
}

func (s *postgresOrganisationStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrNotFound
	}
	ctx, end := traceQuery(ctx, s.tracer, "delete", "organisations")
	defer end()
	res, err := s.db.ExecContext(ctx, `DELETE FROM organisations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete organisation: %w", err)
	}
	return requireRowsAffected(res, "delete organisation")
}

// --- API keys ---------------------------------------------------------------

type postgresAPIKeyStore struct {
	db     *sql.DB
	tracer *observability.Tracer
}

func (s *postgresAPIKeyStore) Create(ctx context.Context, key *domain.APIKey) error {
	if key == nil || key.ID == "" {
		return fmt.Errorf("api key is required")
	}
	ctx, end := traceQuery(ctx, s.tracer, "insert", "api_keys")
	defer end()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (id, organisation_id, hash, last4, role, name, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		key.ID, key.OrganisationID, key.Hash, key.Last4, string(key.Role), key.Name, key.CreatedAt, key.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *postgresAPIKeyStore) FindByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	if hash == "" {
		return nil, ErrNotFound
	}
	ctx, end := traceQuery(ctx, s.tracer, "select", "api_keys")
	defer end()
	row := s.db.QueryRowContext(ctx,
		`SELECT id, organisation_id, hash, last4, role, name, created_at, updated_at
		 FROM api_keys WHERE hash = $1`, hash)
	return scanAPIKey(row)
}

func (s *postgresAPIKeyStore) List(ctx context.Context, organisationID string) ([]*domain.APIKey, error) {
	ctx, end := traceQuery(ctx, s.tracer, "select", "api_keys")
	defer end()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, organisation_id, hash, last4, role, name, created_at, updated_at
		 FROM api_keys WHERE organisation_id = $1 ORDER BY created_at DESC`, organisationID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	keys := []*domain.APIKey{}
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}

func (s *postgresAPIKeyStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrNotFound
	}
	ctx, end := traceQuery(ctx, s.tracer, "delete", "api_keys")
	defer end()
	res, err := s.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	return requireRowsAffected(res, "delete api key")
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAPIKey(row rowScanner) (*domain.APIKey, error) {
	var key domain.APIKey
	var role string
	if err := row.Scan(&key.ID, &key.OrganisationID, &key.Hash, &key.Last4, &role, &key.Name, &key.CreatedAt, &key.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan api key: %w", err)
	}
	key.Role = domain.Role(role)
	return &key, nil
}

// --- Datasets ----------------------------------------------------------------

type postgresDatasetStore struct {
	db     *sql.DB
	tracer *observability.Tracer
}

func (s *postgresDatasetStore) Create(ctx context.Context, ds *domain.Dataset) error {
	if ds == nil || ds.ID == "" {
		return fmt.Errorf("dataset is required")
	}
	inputSchema, outputSchema, metrics, err := marshalDataset(ds)
	if err != nil {
		return err
	}
	ctx, end := traceQuery(ctx, s.tracer, "insert", "datasets")
	defer end()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO datasets (id, organisation_id, name, description, tags, input_schema, output_schema, metrics, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		ds.ID, ds.OrganisationID, ds.Name, ds.Description, pq.Array(ds.Tags),
		inputSchema, outputSchema, metrics, ds.CreatedAt, ds.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create dataset: %w", err)
	}
	return nil
}

func (s *postgresDatasetStore) Get(ctx context.Context, id string) (*domain.Dataset, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	ctx, end := traceQuery(ctx, s.tracer, "select", "datasets")
	defer end()
	row := s.db.QueryRowContext(ctx,
		`SELECT id, organisation_id, name, description, tags, input_schema, output_schema, metrics, created_at, updated_at
		 FROM datasets WHERE id = $1`, id)
	return scanDataset(row)
}

func (s *postgresDatasetStore) List(ctx context.Context, organisationID string, ast *query.Node, limit, offset int) ([]*domain.Dataset, int, error) {
	where, args, err := whereClause(ast, organisationID)
	if err != nil {
		return nil, 0, err
	}
	ctx, end := traceQuery(ctx, s.tracer, "select", "datasets")
	defer end()

	var total int
	countQuery := "SELECT count(*) FROM datasets WHERE " + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count datasets: %w", err)
	}

	queryArgs, limitClause := appendPagination(args, limit, offset)
	q := `SELECT id, organisation_id, name, description, tags, input_schema, output_schema, metrics, created_at, updated_at
		FROM datasets WHERE ` + where + ` ORDER BY created_at DESC` + limitClause

	rows, err := s.db.QueryContext(ctx, q, queryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	datasets := []*domain.Dataset{}
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, 0, err
		}
		datasets = append(datasets, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list datasets: %w", err)
	}
	return datasets, total, nil
}

func (s *postgresDatasetStore) Update(ctx context.Context, ds *domain.Dataset) error {
	if ds == nil || ds.ID == "" {
		return fmt.Errorf("dataset is required")
	}
	inputSchema, outputSchema, metrics, err := marshalDataset(ds)
	if err != nil {
		return err
	}
	ctx, end := traceQuery(ctx, s.tracer, "update", "datasets")
	defer end()
	res, err := s.db.ExecContext(ctx,
		`UPDATE datasets SET name = $1, description = $2, tags = $3, input_schema = $4, output_schema = $5, metrics = $6, updated_at = $7
		 WHERE id = $8`,
		ds.Name, ds.Description, pq.Array(ds.Tags), inputSchema, outputSchema, metrics, ds.UpdatedAt, ds.ID,
	)
	if err != nil {
		return fmt.Errorf("update dataset: %w", err)
	}
	return requireRowsAffected(res, "update dataset")
}

func (s *postgresDatasetStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrNotFound
	}
	ctx, end := traceQuery(ctx, s.tracer, "delete", "datasets")
	defer end()
	res, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	return requireRowsAffected(res, "delete dataset")
}

func marshalDataset(ds *domain.Dataset) (inputSchema, outputSchema, metrics []byte, err error) {
	if ds.InputSchema != nil {
		if inputSchema, err = json.Marshal(ds.InputSchema); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal input schema: %w", err)
		}
	}
	if ds.OutputSchema != nil {
		if outputSchema, err = json.Marshal(ds.OutputSchema); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal output schema: %w", err)
		}
	}
	if metrics, err = json.Marshal(ds.Metrics); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal metrics: %w", err)
	}
	return inputSchema, outputSchema, metrics, nil
}

func scanDataset(row rowScanner) (*domain.Dataset, error) {
	var ds domain.Dataset
	var tags []string
	var inputSchema, outputSchema, metrics []byte
	if err := row.Scan(
		&ds.ID, &ds.OrganisationID, &ds.Name, &ds.Description, pq.Array(&tags),
		&inputSchema, &outputSchema, &metrics, &ds.CreatedAt, &ds.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan dataset: %w", err)
	}
	ds.Tags = tags
	if len(inputSchema) > 0 {
		if err := json.Unmarshal(inputSchema, &ds.InputSchema); err != nil {
			return nil, fmt.Errorf("unmarshal input schema: %w", err)
		}
	}
	if len(outputSchema) > 0 {
		if err := json.Unmarshal(outputSchema, &ds.OutputSchema); err != nil {
			return nil, fmt.Errorf("unmarshal output schema: %w", err)
		}
	}
	if len(metrics) > 0 {
		if err := json.Unmarshal(metrics, &ds.Metrics); err != nil {
			return nil, fmt.Errorf("unmarshal metrics: %w", err)
		}
	}
	return &ds, nil
}

// --- Experiments ---------------------------------------------------------

type postgresExperimentStore struct {
	db     *sql.DB
	tracer *observability.Tracer
}

func (s *postgresExperimentStore) Create(ctx context.Context, exp *domain.Experiment) error {
	if exp == nil || exp.ID == "" {
		return fmt.Errorf("experiment is required")
	}
	params, comparisonParams, summaries, results, err := marshalExperiment(exp)
	if err != nil {
		return err
	}
	ctx, end := traceQuery(ctx, s.tracer, "insert", "experiments")
	defer end()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO experiments (id, dataset_id, organisation_id, batch_id, name, parameters, comparison_parameters, status, summaries, results, trace_ids, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		exp.ID, exp.DatasetID, exp.OrganisationID, exp.BatchID, exp.Name,
		params, comparisonParams, string(exp.Status), summaries, results, pq.Array(exp.TraceIDs),
		exp.CreatedAt, exp.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create experiment: %w", err)
	}
	return nil
}

func (s *postgresExperimentStore) Get(ctx context.Context, id string) (*domain.Experiment, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	ctx, end := traceQuery(ctx, s.tracer, "select", "experiments")
	defer end()
	row := s.db.QueryRowContext(ctx, experimentSelect+` WHERE id = $1`, id)
	return scanExperiment(row)
}

const experimentSelect = `SELECT id, dataset_id, organisation_id, batch_id, name, parameters, comparison_parameters, status, summaries, results, trace_ids, created_at, updated_at FROM experiments`

func (s *postgresExperimentStore) List(ctx context.Context, organisationID string, ast *query.Node, limit, offset int) ([]*domain.Experiment, int, error) {
	where, args, err := whereClause(ast, organisationID)
	if err != nil {
		return nil, 0, err
	}
	ctx, end := traceQuery(ctx, s.tracer, "select", "experiments")
	defer end()

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM experiments WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count experiments: %w", err)
	}

	queryArgs, limitClause := appendPagination(args, limit, offset)
	rows, err := s.db.QueryContext(ctx, experimentSelect+" WHERE "+where+" ORDER BY created_at DESC"+limitClause, queryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list experiments: %w", err)
	}
	defer rows.Close()

	experiments := []*domain.Experiment{}
	for rows.Next() {
		exp, err := scanExperiment(rows)
		if err != nil {
			return nil, 0, err
		}
		experiments = append(experiments, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list experiments: %w", err)
	}
	return experiments, total, nil
}

func (s *postgresExperimentStore) Update(ctx context.Context, exp *domain.Experiment) error {
	if exp == nil || exp.ID == "" {
		return fmt.Errorf("experiment is required")
	}
	params, comparisonParams, summaries, results, err := marshalExperiment(exp)
	if err != nil {
		return err
	}
	ctx, end := traceQuery(ctx, s.tracer, "update", "experiments")
	defer end()
	res, err := s.db.ExecContext(ctx,
		`UPDATE experiments SET name = $1, parameters = $2, comparison_parameters = $3, status = $4, summaries = $5, results = $6, trace_ids = $7, updated_at = $8
		 WHERE id = $9`,
		exp.Name, params, comparisonParams, string(exp.Status), summaries, results, pq.Array(exp.TraceIDs), exp.UpdatedAt, exp.ID,
	)
	if err != nil {
		return fmt.Errorf("update experiment: %w", err)
	}
	return requireRowsAffected(res, "update experiment")
}

func (s *postgresExperimentStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrNotFound
	}
	ctx, end := traceQuery(ctx, s.tracer, "delete", "experiments")
	defer end()
	res, err := s.db.ExecContext(ctx, `DELETE FROM experiments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete experiment: %w", err)
	}
	return requireRowsAffected(res, "delete experiment")
}

// UpsertResult folds result into the experiment's Results — merging its
// scores/messages/errors key-by-key into any existing entry for the same
// ExampleID (new keys overwrite old, spec.md section 4.7 step 6) so that a
// metric omitted from a later call (e.g. one that errored and was recorded
// under Errors instead) doesn't lose its previously stored score — and
// recomputes every Summary from scratch across all results, inside a
// transaction so the read-modify-write is free of lost updates under
// concurrent scoring calls.
func (s *postgresExperimentStore) UpsertResult(ctx context.Context, experimentID string, result domain.Result) (*domain.Experiment, error) {
	ctx, end := traceQuery(ctx, s.tracer, "update", "experiments")
	defer end()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin upsert result: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, experimentSelect+` WHERE id = $1 FOR UPDATE`, experimentID)
	exp, err := scanExperiment(row)
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range exp.Results {
		if exp.Results[i].ExampleID == result.ExampleID {
			exp.Results[i] = mergeResult(exp.Results[i], result)
			merged = true
			break
		}
	}
	if !merged {
		exp.Results = append(exp.Results, result)
	}
	exp.RecalculateSummaries()
	exp.UpdatedAt = time.Now()

	params, comparisonParams, summaries, results, err := marshalExperiment(exp)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE experiments SET parameters = $1, comparison_parameters = $2, status = $3, summaries = $4, results = $5, trace_ids = $6, updated_at = $7
		 WHERE id = $8`,
		params, comparisonParams, string(exp.Status), summaries, results, pq.Array(exp.TraceIDs), exp.UpdatedAt, exp.ID,
	); err != nil {
		return nil, fmt.Errorf("persist upsert result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert result: %w", err)
	}
	return exp, nil
}

// mergeResult folds incoming into existing: Scores, Messages, and Errors are
// merged key-by-key (incoming wins on overlap), while TraceID and
// RateLimited — which describe the most recent scoring attempt rather than
// a per-metric outcome — are simply overwritten.
func mergeResult(existing, incoming domain.Result) domain.Result {
	merged := existing
	merged.TraceID = incoming.TraceID
	merged.RateLimited = incoming.RateLimited

	if len(incoming.Scores) > 0 {
		scores := make(map[string]float64, len(existing.Scores)+len(incoming.Scores))
		for k, v := range existing.Scores {
			scores[k] = v
		}
		for k, v := range incoming.Scores {
			scores[k] = v
		}
		merged.Scores = scores
	}

	if len(incoming.Messages) > 0 {
		messages := make(map[string]string, len(existing.Messages)+len(incoming.Messages))
		for k, v := range existing.Messages {
			messages[k] = v
		}
		for k, v := range incoming.Messages {
			messages[k] = v
		}
		merged.Messages = messages
	}

	if len(incoming.Errors) > 0 {
		errs := make(map[string]string, len(existing.Errors)+len(incoming.Errors))
		for k, v := range existing.Errors {
			errs[k] = v
		}
		for k, v := range incoming.Errors {
			errs[k] = v
		}
		merged.Errors = errs
	}

	return merged
}

func marshalExperiment(exp *domain.Experiment) (params, comparisonParams, summaries, results []byte, err error) {
	if params, err = json.Marshal(exp.Parameters); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal parameters: %w", err)
	}
	if comparisonParams, err = json.Marshal(exp.ComparisonParameters); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal comparison parameters: %w", err)
	}
	if summaries, err = json.Marshal(exp.Summaries); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal summaries: %w", err)
	}
	if results, err = json.Marshal(exp.Results); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal results: %w", err)
	}
	return params, comparisonParams, summaries, results, nil
}

func scanExperiment(row rowScanner) (*domain.Experiment, error) {
	var exp domain.Experiment
	var status string
	var traceIDs []string
	var params, comparisonParams, summaries, results []byte
	if err := row.Scan(
		&exp.ID, &exp.DatasetID, &exp.OrganisationID, &exp.BatchID, &exp.Name,
		&params, &comparisonParams, &status, &summaries, &results, pq.Array(&traceIDs),
		&exp.CreatedAt, &exp.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan experiment: %w", err)
	}
	exp.Status = domain.ExperimentStatus(status)
	exp.TraceIDs = traceIDs
	if len(params) > 0 {
		if err := json.Unmarshal(params, &exp.Parameters); err != nil {
			return nil, fmt.Errorf("unmarshal parameters: %w", err)
		}
	}
	if len(comparisonParams) > 0 {
		if err := json.Unmarshal(comparisonParams, &exp.ComparisonParameters); err != nil {
			return nil, fmt.Errorf("unmarshal comparison parameters: %w", err)
		}
	}
	if len(summaries) > 0 {
		if err := json.Unmarshal(summaries, &exp.Summaries); err != nil {
			return nil, fmt.Errorf("unmarshal summaries: %w", err)
		}
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &exp.Results); err != nil {
			return nil, fmt.Errorf("unmarshal results: %w", err)
		}
	}
	return &exp, nil
}

// --- shared helpers ----------------------------------------------------------

// whereClause combines the §4.1 query-language compilation with a mandatory
// organisation filter: no List call may cross tenant boundaries regardless
// of what the caller's q parameter asks for.
func whereClause(ast *query.Node, organisationID string) (string, []any, error) {
	frag, err := query.ToSQL(ast)
	if err != nil {
		return "", nil, err
	}
	return "organisation_id = $1 AND (" + frag + ")", []any{organisationID}, nil
}

func appendPagination(args []any, limit, offset int) ([]any, string) {
	out := append([]any{}, args...)
	clause := ""
	if limit > 0 {
		out = append(out, limit)
		clause = fmt.Sprintf(" LIMIT $%d", len(out))
	}
	if offset > 0 {
		out = append(out, offset)
		clause += fmt.Sprintf(" OFFSET $%d", len(out))
	}
	return out, clause
}

func requireRowsAffected(res sql.Result, op string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
