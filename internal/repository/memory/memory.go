package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ammarkhassawneh/mlops-accidents/internal/db"
	"github.com/ammarkhassawneh/mlops-accidents/internal/repository"
)

// Repository is an in-memory implementation of all repository interfaces,
// used by tests and local development without a database file.
type Repository struct {
	mu          sync.RWMutex
	users       map[int64]*db.User
	credentials map[int64]*db.Credential
	predictions []*db.Prediction
	requestLogs []*db.RequestLog
	activity    []*db.Activity
	testResults []*db.TestResult
	nextID      int64
}

func New() *Repository {
	return &Repository{
		users:       make(map[int64]*db.User),
		credentials: make(map[int64]*db.Credential),
		nextID:      1,
	}
}

func (r *Repository) nextSeq() int64 {
	id := r.nextID
	r.nextID++
	return id
}

// Create assigns the admin role to the first user while holding the write
// lock, so concurrent registrations cannot both bootstrap as admin.
func (r *Repository) Create(ctx context.Context, user *db.User, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Name == user.Name || u.Email == user.Email {
			return repository.ErrDuplicateIdentity
		}
	}

	role := db.RoleUser
	if len(r.users) == 0 {
		role = db.RoleAdmin
	}

	now := time.Now()
	user.ID = r.nextSeq()
	user.Role = role
	user.CreatedAt = now
	user.UpdatedAt = now

	cp := *user
	r.users[user.ID] = &cp
	r.credentials[user.ID] = &db.Credential{UserID: user.ID, PasswordHash: passwordHash}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*db.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r *Repository) GetByName(ctx context.Context, name string) (*db.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Name == name {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Repository) CredentialByUserID(ctx context.Context, userID int64) (*db.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.credentials[userID]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r *Repository) List(ctx context.Context) ([]*db.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]*db.User, 0, len(r.users))
	for id := int64(1); id < r.nextID; id++ {
		if u, ok := r.users[id]; ok {
			cp := *u
			users = append(users, &cp)
		}
	}
	return users, nil
}

func (r *Repository) UpdateRights(ctx context.Context, id int64, readRights, writeRights string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.ReadRights = readRights
	u.WriteRights = writeRights
	u.UpdatedAt = time.Now()
	return nil
}

// SetRole changes a stored role directly. Only tests use it, to exercise
// tokens that outlive a role change.
func (r *Repository) SetRole(ctx context.Context, id int64, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now()
	return nil
}

func (r *Repository) UpdateProfile(ctx context.Context, id int64, name, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	for otherID, other := range r.users {
		if otherID != id && (other.Name == name || other.Email == email) {
			return repository.ErrDuplicateIdentity
		}
	}
	u.Name = name
	u.Email = email
	u.UpdatedAt = time.Now()
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	for _, p := range r.predictions {
		if p.OwnerID == id {
			return repository.ErrOwnedRecords
		}
	}
	delete(r.users, id)
	delete(r.credentials, id)

	// Activity entries follow their user out; nothing else cascades.
	kept := r.activity[:0]
	for _, a := range r.activity {
		if a.UserID != id {
			kept = append(kept, a)
		}
	}
	r.activity = kept
	return nil
}

// Prediction repository

func (r *Repository) CreatePrediction(ctx context.Context, p *db.Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextSeq()
	p.CreatedAt = time.Now()
	cp := *p
	r.predictions = append(r.predictions, &cp)
	return nil
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID int64) ([]*db.Prediction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var preds []*db.Prediction
	for _, p := range r.predictions {
		if p.OwnerID == ownerID {
			cp := *p
			preds = append(preds, &cp)
		}
	}
	return preds, nil
}

// Request log repository

func (r *Repository) CreateRequestLog(ctx context.Context, entry *db.RequestLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = r.nextSeq()
	cp := *entry
	r.requestLogs = append(r.requestLogs, &cp)
	return nil
}

func (r *Repository) ListRequestLogs(ctx context.Context, limit int) ([]*db.RequestLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var entries []*db.RequestLog
	for i := len(r.requestLogs) - 1; i >= 0 && len(entries) < limit; i-- {
		cp := *r.requestLogs[i]
		entries = append(entries, &cp)
	}
	return entries, nil
}

// Activity repository

func (r *Repository) CreateActivity(ctx context.Context, entry *db.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[entry.UserID]; !ok {
		return repository.ErrNotFound
	}
	entry.ID = r.nextSeq()
	entry.Timestamp = time.Now()
	cp := *entry
	r.activity = append(r.activity, &cp)
	return nil
}

func (r *Repository) ListActivityByUser(ctx context.Context, userID int64) ([]*db.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var entries []*db.Activity
	for _, a := range r.activity {
		if a.UserID == userID {
			cp := *a
			entries = append(entries, &cp)
		}
	}
	return entries, nil
}

// Test result repository

func (r *Repository) CreateTestResult(ctx context.Context, result *db.TestResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	result.ID = r.nextSeq()
	cp := *result
	r.testResults = append(r.testResults, &cp)
	return nil
}

func (r *Repository) ListTestResults(ctx context.Context) ([]*db.TestResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	results := make([]*db.TestResult, 0, len(r.testResults))
	for _, t := range r.testResults {
		cp := *t
		results = append(results, &cp)
	}
	return results, nil
}

// Narrow views satisfying the individual repository interfaces, since the
// method sets overlap on Create/List names.

type predictionView struct{ *Repository }

func (v predictionView) Create(ctx context.Context, p *db.Prediction) error {
	return v.CreatePrediction(ctx, p)
}

type requestLogView struct{ *Repository }

func (v requestLogView) Create(ctx context.Context, e *db.RequestLog) error {
	return v.CreateRequestLog(ctx, e)
}

func (v requestLogView) List(ctx context.Context, limit int) ([]*db.RequestLog, error) {
	return v.ListRequestLogs(ctx, limit)
}

type activityView struct{ *Repository }

func (v activityView) Create(ctx context.Context, e *db.Activity) error {
	return v.CreateActivity(ctx, e)
}

func (v activityView) ListByUser(ctx context.Context, userID int64) ([]*db.Activity, error) {
	return v.ListActivityByUser(ctx, userID)
}

type testResultView struct{ *Repository }

func (v testResultView) Create(ctx context.Context, t *db.TestResult) error {
	return v.CreateTestResult(ctx, t)
}

func (v testResultView) List(ctx context.Context) ([]*db.TestResult, error) {
	return v.ListTestResults(ctx)
}

func (r *Repository) Predictions() repository.PredictionRepository { return predictionView{r} }
func (r *Repository) RequestLogs() repository.RequestLogRepository { return requestLogView{r} }
func (r *Repository) Activity() repository.ActivityRepository { return activityView{r} }
func (r *Repository) TestResults() repository.TestResultRepository { return testResultView{r} }

var _ repository.UserRepository = (*Repository)(nil)
