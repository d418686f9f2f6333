// Package repository содержит локальный канонический стор в PostgreSQL:
// кэш бронирований и журнала выплат плюс журнал отправленных заявок на вывод.
package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/mkhasanov/engagement-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже существующим логином.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrEngagementNotFound возвращается, если бронирование не найдено в кэше.
	ErrEngagementNotFound = errors.New("engagement not found")
	// ErrServiceDayNotFound возвращается, если выход не найден в кэше.
	ErrServiceDayNotFound = errors.New("service day not found")
	// ErrSummaryNotFound возвращается, если сводка выплат ещё не загружалась.
	ErrSummaryNotFound = errors.New("payout summary not found")
	// ErrDuplicateWithdrawal возвращается при повторной записи той же заявки на вывод.
	ErrDuplicateWithdrawal = errors.New("withdrawal request already recorded")
)

// PostgresRepository предоставляет доступ к каноническому стору в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Если ошибка контекста — выходим сразу
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			// Ретраи полезны для Serialization Failure и Deadlocks;
			// с переподключением pgxpool справляется сам.
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Деньги хранятся в сотых долях, целыми числами.
func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

// CreateUser создаёт нового пользователя приложения.
func (r *PostgresRepository) CreateUser(ctx context.Context, login string, role model.Role, passwordHash []byte) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (login, role, password_hash) VALUES ($1, $2, $3) RETURNING id`,
		login, string(role), passwordHash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, login)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByLogin возвращает пользователя по логину.
func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, login, role, password_hash, created_at FROM users WHERE login = $1`,
		login,
	)

	var u model.User
	var role string
	err := row.Scan(&u.ID, &u.Login, &role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = model.Role(role)

	return &u, nil
}

// UpsertEngagements сохраняет нормализованные бронирования одной корзины
// (current/upcoming/past) вместе с сегодняшними выходами.
func (r *PostgresRepository) UpsertEngagements(ctx context.Context, bucket string, engagements []model.Engagement) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		for _, e := range engagements {
			if err := upsertEngagement(ctx, tx, bucket, e); err != nil {
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

func upsertEngagement(ctx context.Context, tx pgx.Tx, bucket string, e model.Engagement) error {
	responsibilities, err := marshalJSON(e.Responsibilities)
	if err != nil {
		return err
	}
	addOns, err := marshalJSON(e.AddOns)
	if err != nil {
		return err
	}
	modifications, err := marshalJSON(e.Modifications)
	if err != nil {
		return err
	}
	var vacation []byte
	if e.Vacation != nil {
		vacation, err = marshalJSON(e.Vacation)
		if err != nil {
			return err
		}
	}

	var startInstant *time.Time
	if !e.StartInstant.IsZero() {
		startInstant = &e.StartInstant
	}
	var startDate, endDate *time.Time
	if !e.StartDate.IsZero() {
		startDate = &e.StartDate
	}
	if !e.EndDate.IsZero() {
		endDate = &e.EndDate
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO engagements
		   (id, customer_id, provider_id, booking_type, task_status,
		    start_date, end_date, start_time, end_time, start_instant, time_range,
		    amount_cents, provider_name, bucket,
		    responsibilities, add_ons, modifications, vacation, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,now())
		 ON CONFLICT (id) DO UPDATE SET
		   customer_id = EXCLUDED.customer_id,
		   provider_id = EXCLUDED.provider_id,
		   booking_type = EXCLUDED.booking_type,
		   task_status = EXCLUDED.task_status,
		   start_date = EXCLUDED.start_date,
		   end_date = EXCLUDED.end_date,
		   start_time = EXCLUDED.start_time,
		   end_time = EXCLUDED.end_time,
		   start_instant = EXCLUDED.start_instant,
		   time_range = EXCLUDED.time_range,
		   amount_cents = EXCLUDED.amount_cents,
		   provider_name = EXCLUDED.provider_name,
		   bucket = EXCLUDED.bucket,
		   responsibilities = EXCLUDED.responsibilities,
		   add_ons = EXCLUDED.add_ons,
		   modifications = EXCLUDED.modifications,
		   vacation = EXCLUDED.vacation,
		   updated_at = now()`,
		e.ID, e.CustomerID, e.ProviderID, string(e.BookingType), string(e.TaskStatus),
		startDate, endDate, e.StartTime, e.EndTime, startInstant, e.TimeRange,
		toCents(e.Amount), e.ProviderName, bucket,
		responsibilities, addOns, modifications, vacation,
	)
	if err != nil {
		return fmt.Errorf("upsert engagement %d: %w", e.ID, err)
	}

	if e.TodayService != nil {
		if err := upsertServiceDay(ctx, tx, *e.TodayService); err != nil {
			return err
		}
	}

	return nil
}

func upsertServiceDay(ctx context.Context, tx pgx.Tx, day model.ServiceDay) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO service_days
		   (id, engagement_id, status, can_start, can_generate_otp, can_complete, otp_active, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,now())
		 ON CONFLICT (id) DO UPDATE SET
		   status = EXCLUDED.status,
		   can_start = EXCLUDED.can_start,
		   can_generate_otp = EXCLUDED.can_generate_otp,
		   can_complete = EXCLUDED.can_complete,
		   otp_active = EXCLUDED.otp_active,
		   updated_at = now()`,
		day.ID, day.EngagementID, string(day.Status),
		day.CanStart, day.CanGenerate, day.CanComplete, day.OTPActive,
	)
	if err != nil {
		return fmt.Errorf("upsert service day %d: %w", day.ID, err)
	}
	return nil
}

// SaveEngagement записывает подтверждённое сервером изменение бронирования:
// расписание, отпуск и историю изменений. Корзина и остальные поля не трогаются.
func (r *PostgresRepository) SaveEngagement(ctx context.Context, e *model.Engagement) error {
	modifications, err := marshalJSON(e.Modifications)
	if err != nil {
		return err
	}
	var vacation []byte
	if e.Vacation != nil {
		vacation, err = marshalJSON(e.Vacation)
		if err != nil {
			return err
		}
	}

	var startInstant *time.Time
	if !e.StartInstant.IsZero() {
		startInstant = &e.StartInstant
	}
	var startDate, endDate *time.Time
	if !e.StartDate.IsZero() {
		startDate = &e.StartDate
	}
	if !e.EndDate.IsZero() {
		endDate = &e.EndDate
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE engagements SET
		   start_date = $2, end_date = $3, start_time = $4, end_time = $5,
		   start_instant = $6, time_range = $7, modifications = $8, vacation = $9,
		   updated_at = now()
		 WHERE id = $1`,
		e.ID, startDate, endDate, e.StartTime, e.EndTime,
		startInstant, e.TimeRange, modifications, vacation,
	)
	if err != nil {
		return fmt.Errorf("save engagement %d: %w", e.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEngagementNotFound
	}
	return nil
}

const engagementColumns = `id, customer_id, provider_id, booking_type, task_status,
	start_date, end_date, start_time, end_time, start_instant, time_range,
	amount_cents, provider_name, responsibilities, add_ons, modifications, vacation`

// GetEngagement возвращает бронирование вместе с сегодняшним выходом.
func (r *PostgresRepository) GetEngagement(ctx context.Context, id int64) (*model.Engagement, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+engagementColumns+` FROM engagements WHERE id = $1`, id)

	e, err := scanEngagement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEngagementNotFound
		}
		return nil, fmt.Errorf("get engagement: %w", err)
	}

	day, err := r.serviceDayByEngagement(ctx, id)
	if err != nil {
		return nil, err
	}
	e.TodayService = day

	return e, nil
}

// ListEngagements возвращает бронирования пользователя в указанной корзине.
func (r *PostgresRepository) ListEngagements(ctx context.Context, userID int64, bucket string) ([]model.Engagement, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+engagementColumns+`
		 FROM engagements
		 WHERE (provider_id = $1 OR customer_id = $1) AND bucket = $2
		 ORDER BY start_instant NULLS LAST, id`,
		userID, bucket,
	)
	if err != nil {
		return nil, fmt.Errorf("select engagements: %w", err)
	}
	defer rows.Close()

	var res []model.Engagement
	for rows.Next() {
		e, err := scanEngagement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan engagement: %w", err)
		}
		res = append(res, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	for i := range res {
		day, err := r.serviceDayByEngagement(ctx, res[i].ID)
		if err != nil {
			return nil, err
		}
		res[i].TodayService = day
	}

	return res, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEngagement(row rowScanner) (*model.Engagement, error) {
	var (
		e                model.Engagement
		bookingType      string
		taskStatus       string
		startDate        *time.Time
		endDate          *time.Time
		startInstant     *time.Time
		amountCents      int64
		responsibilities []byte
		addOns           []byte
		modifications    []byte
		vacation         []byte
	)

	err := row.Scan(&e.ID, &e.CustomerID, &e.ProviderID, &bookingType, &taskStatus,
		&startDate, &endDate, &e.StartTime, &e.EndTime, &startInstant, &e.TimeRange,
		&amountCents, &e.ProviderName, &responsibilities, &addOns, &modifications, &vacation)
	if err != nil {
		return nil, err
	}

	e.BookingType = model.BookingType(bookingType)
	e.TaskStatus = model.TaskStatus(taskStatus)
	if startDate != nil {
		e.StartDate = *startDate
	}
	if endDate != nil {
		e.EndDate = *endDate
	}
	if startInstant != nil {
		e.StartInstant = startInstant.UTC()
	}
	e.Amount = fromCents(amountCents)

	if err := unmarshalJSON(responsibilities, &e.Responsibilities); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(addOns, &e.AddOns); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(modifications, &e.Modifications); err != nil {
		return nil, err
	}
	if len(vacation) > 0 {
		var v model.Vacation
		if err := json.Unmarshal(vacation, &v); err != nil {
			return nil, fmt.Errorf("unmarshal vacation: %w", err)
		}
		e.Vacation = &v
	}

	return &e, nil
}

func (r *PostgresRepository) serviceDayByEngagement(ctx context.Context, engagementID int64) (*model.ServiceDay, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, engagement_id, status, can_start, can_generate_otp, can_complete, otp_active
		 FROM service_days WHERE engagement_id = $1
		 ORDER BY updated_at DESC LIMIT 1`,
		engagementID,
	)

	day, err := scanServiceDay(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get service day: %w", err)
	}
	return day, nil
}

func scanServiceDay(row rowScanner) (*model.ServiceDay, error) {
	var d model.ServiceDay
	var status string
	err := row.Scan(&d.ID, &d.EngagementID, &status, &d.CanStart, &d.CanGenerate, &d.CanComplete, &d.OTPActive)
	if err != nil {
		return nil, err
	}
	d.Status = model.ServiceDayStatus(status)
	return &d, nil
}

// GetServiceDay возвращает выход по идентификатору.
func (r *PostgresRepository) GetServiceDay(ctx context.Context, dayID int64) (*model.ServiceDay, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, engagement_id, status, can_start, can_generate_otp, can_complete, otp_active
		 FROM service_days WHERE id = $1`,
		dayID,
	)

	day, err := scanServiceDay(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceDayNotFound
		}
		return nil, fmt.Errorf("get service day: %w", err)
	}
	return day, nil
}

// SaveServiceDay записывает состояние выхода.
func (r *PostgresRepository) SaveServiceDay(ctx context.Context, day *model.ServiceDay) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := upsertServiceDay(ctx, tx, *day); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// ReplaceLedger заменяет кэш журнала движений исполнителя свежим серверным
// списком. Сам журнал append-only на сервере; локально хранится копия
// исключительно для отображения.
func (r *PostgresRepository) ReplaceLedger(ctx context.Context, providerID int64, entries []model.LedgerEntry) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if _, err := tx.Exec(ctx, `DELETE FROM ledger_entries WHERE provider_id = $1`, providerID); err != nil {
			return fmt.Errorf("clear ledger: %w", err)
		}

		for _, e := range entries {
			_, err := tx.Exec(ctx,
				`INSERT INTO ledger_entries (id, provider_id, engagement_id, amount_cents, direction, reason, created_at)
				 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				e.ID, providerID, e.EngagementID, toCents(e.Amount), string(e.Direction), string(e.Reason), e.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("insert ledger entry %d: %w", e.ID, err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// ListLedger возвращает кэшированный журнал движений исполнителя.
func (r *PostgresRepository) ListLedger(ctx context.Context, providerID int64) ([]model.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, provider_id, engagement_id, amount_cents, direction, reason, created_at
		 FROM ledger_entries
		 WHERE provider_id = $1
		 ORDER BY created_at DESC, id DESC`,
		providerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select ledger: %w", err)
	}
	defer rows.Close()

	var res []model.LedgerEntry
	for rows.Next() {
		var (
			e         model.LedgerEntry
			cents     int64
			direction string
			reason    string
		)
		if err := rows.Scan(&e.ID, &e.ProviderID, &e.EngagementID, &cents, &direction, &reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Amount = fromCents(cents)
		e.Direction = model.LedgerDirection(direction)
		e.Reason = model.LedgerReason(reason)
		res = append(res, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// SavePayoutSummary сохраняет серверную сводку выплат.
func (r *PostgresRepository) SavePayoutSummary(ctx context.Context, s model.PayoutSummary) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO payout_summaries
		   (provider_id, total_earned_cents, total_withdrawn_cents, available_cents,
		    security_deposit_paid, security_deposit_cents, refreshed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (provider_id) DO UPDATE SET
		   total_earned_cents = EXCLUDED.total_earned_cents,
		   total_withdrawn_cents = EXCLUDED.total_withdrawn_cents,
		   available_cents = EXCLUDED.available_cents,
		   security_deposit_paid = EXCLUDED.security_deposit_paid,
		   security_deposit_cents = EXCLUDED.security_deposit_cents,
		   refreshed_at = EXCLUDED.refreshed_at`,
		s.ProviderID, toCents(s.TotalEarned), toCents(s.TotalWithdrawn), toCents(s.AvailableToWithdraw),
		s.SecurityDepositPaid, toCents(s.SecurityDepositAmount), s.RefreshedAt,
	)
	if err != nil {
		return fmt.Errorf("save payout summary: %w", err)
	}
	return nil
}

// GetPayoutSummary возвращает последнюю сохранённую сводку выплат.
func (r *PostgresRepository) GetPayoutSummary(ctx context.Context, providerID int64) (*model.PayoutSummary, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT provider_id, total_earned_cents, total_withdrawn_cents, available_cents,
		        security_deposit_paid, security_deposit_cents, refreshed_at
		 FROM payout_summaries WHERE provider_id = $1`,
		providerID,
	)

	var (
		s                            model.PayoutSummary
		earned, withdrawn, available int64
		depositCents                 int64
	)
	err := row.Scan(&s.ProviderID, &earned, &withdrawn, &available, &s.SecurityDepositPaid, &depositCents, &s.RefreshedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSummaryNotFound
		}
		return nil, fmt.Errorf("get payout summary: %w", err)
	}
	s.TotalEarned = fromCents(earned)
	s.TotalWithdrawn = fromCents(withdrawn)
	s.AvailableToWithdraw = fromCents(available)
	s.SecurityDepositAmount = fromCents(depositCents)

	return &s, nil
}

// CreateWithdrawalRequest фиксирует заявку на вывод до отправки на сервер.
// Повторная запись того же идентификатора — дубль отправки.
func (r *PostgresRepository) CreateWithdrawalRequest(ctx context.Context, req model.WithdrawalRequest) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO withdrawal_requests (id, provider_id, amount_cents, payout_mode, status)
		 VALUES ($1,$2,$3,$4,$5)`,
		req.ID, req.ProviderID, toCents(req.Amount), req.PayoutMode, string(req.Status),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateWithdrawal
		}
		return fmt.Errorf("create withdrawal request: %w", err)
	}
	return nil
}

// UpdateWithdrawalStatus переводит заявку в окончательный статус.
func (r *PostgresRepository) UpdateWithdrawalStatus(ctx context.Context, id uuid.UUID, status model.WithdrawalStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE withdrawal_requests SET status = $2 WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("update withdrawal status: %w", err)
	}
	return nil
}

// ListWithdrawalRequests возвращает историю заявок исполнителя.
func (r *PostgresRepository) ListWithdrawalRequests(ctx context.Context, providerID int64) ([]model.WithdrawalRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, provider_id, amount_cents, payout_mode, status, created_at
		 FROM withdrawal_requests
		 WHERE provider_id = $1
		 ORDER BY created_at DESC`,
		providerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select withdrawal requests: %w", err)
	}
	defer rows.Close()

	var res []model.WithdrawalRequest
	for rows.Next() {
		var (
			req    model.WithdrawalRequest
			cents  int64
			status string
		)
		if err := rows.Scan(&req.ID, &req.ProviderID, &cents, &req.PayoutMode, &status, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan withdrawal request: %w", err)
		}
		req.Amount = fromCents(cents)
		req.Status = model.WithdrawalStatus(status)
		res = append(res, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

func marshalJSON(v any) ([]byte, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return buf, nil
}

func unmarshalJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal json: %w", err)
	}
	return nil
}
