package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"storekeep/internal/lifecycle"
	"storekeep/internal/model"
	"storekeep/internal/monitor"
	"storekeep/internal/policy"
	"storekeep/internal/repository"
	"storekeep/internal/session"
	"storekeep/internal/storage"
	"storekeep/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// harness wires every service against one in-memory database.
type harness struct {
	db       *gorm.DB
	files    *storage.DiskStore
	sessions *session.Manager
	hasher   PasswordHasher
	users    repository.UserRepository
	products repository.ProductRepository
	reports  repository.ReportRepository
	engine   *lifecycle.Engine
	monitor  *monitor.Monitor

	accounts AccountService
	catalog  CatalogService
	admin    AdminService
	report   ReportService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewDB(t)
	h := &harness{
		db:       db,
		files:    storage.NewDiskStore(t.TempDir()),
		sessions: session.NewManager(session.NewMemoryStore(), "test-secret", time.Hour),
		hasher:   NewBcryptHasher(bcrypt.MinCost),
		users:    repository.NewUserRepository(db),
		products: repository.NewProductRepository(db),
		reports:  repository.NewReportRepository(db),
		monitor:  monitor.New("test"),
	}
	h.engine = lifecycle.NewEngine(h.users, h.products, h.files)
	h.accounts = NewAccountService(h.users, h.reports, h.sessions, h.hasher)
	h.catalog = NewCatalogService(h.products, h.files, h.engine)
	h.admin = NewAdminService(h.users, h.products, h.engine)
	h.report = NewReportService(h.reports, h.monitor, nil)
	return h
}

// user inserts a user with a hashed password and returns it.
func (h *harness) user(t *testing.T, name, password string, role model.Role) *model.User {
	t.Helper()
	hash, err := h.hasher.Hash(password)
	require.NoError(t, err)
	u := &model.User{Username: name, Password: hash, Role: role, IsActive: true}
	require.NoError(t, h.db.Create(u).Error)
	return u
}

func (h *harness) product(t *testing.T, owner *model.User, name, price string, qty int) *model.Product {
	t.Helper()
	p := &model.Product{Name: name, Price: decimal.RequireFromString(price), Quantity: qty, UserID: owner.ID}
	require.NoError(t, h.db.Create(p).Error)
	return p
}

// imageFiles lists every stored product image.
func (h *harness) imageFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(h.files.Root(), filepath.FromSlash(storage.ProductImagesDir)))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

func actor(u *model.User) policy.Actor { return policy.Actor{ID: u.ID, Role: u.Role} }

func image(name string) *ImageUpload {
	return &ImageUpload{Filename: name, Content: strings.NewReader("\x89PNG fake image bytes")}
}

var bg = context.Background()
