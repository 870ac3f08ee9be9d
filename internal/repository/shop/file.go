package shop

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/order-alert/internal/config"
	domain "github.com/oshokin/order-alert/internal/domain/alert"
)

// Store keys shared with the UI.
const (
	KeyShopID   = "shopId"
	KeyShopName = "shopName"
)

// Repository defines persistence operations for the shop selection.
type Repository interface {
	Load(ctx context.Context) (*domain.ShopConfig, error)
	Save(ctx context.Context, shop *domain.ShopConfig) error
}

// FileRepository persists the shop selection to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON store.
	path string
	// mu serializes file access within the process.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when no shop id has been stored yet.
	ErrNotFound = errors.New("shop not configured")
	// errShopIDRequired is returned when saving without a shop id.
	errShopIDRequired = errors.New("shop id must be provided")
)

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the store location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the shop selection from disk.
// A missing file or an empty shop id yields ErrNotFound.
func (r *FileRepository) Load(_ context.Context) (*domain.ShopConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.read()
	if err != nil {
		return nil, err
	}

	shop := &domain.ShopConfig{
		ShopID:   strings.TrimSpace(values.GetFields()[KeyShopID].GetStringValue()),
		ShopName: values.GetFields()[KeyShopName].GetStringValue(),
	}

	if shop.ShopID == "" {
		return nil, ErrNotFound
	}

	return shop, nil
}

// Save writes the shop selection, keeping any other keys already in the store.
func (r *FileRepository) Save(_ context.Context, shop *domain.ShopConfig) error {
	if shop == nil || strings.TrimSpace(shop.ShopID) == "" {
		return errShopIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.read()
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		values = new(structpb.Struct)
	default:
		return err
	}

	if values.Fields == nil {
		values.Fields = make(map[string]*structpb.Value, 2) //nolint:mnd // Two known keys.
	}

	values.Fields[KeyShopID] = structpb.NewStringValue(strings.TrimSpace(shop.ShopID))
	values.Fields[KeyShopName] = structpb.NewStringValue(shop.ShopName)

	marshalOptions := protojson.MarshalOptions{
		Multiline: true,
		Indent:    "  ",
	}

	data, err := marshalOptions.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}

	return nil
}

// read loads the raw key-value object. The caller holds mu.
func (r *FileRepository) read() (*structpb.Struct, error) {
	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read store file: %w", err)
	}

	if len(strings.TrimSpace(string(contents))) == 0 {
		return nil, ErrNotFound
	}

	var values structpb.Struct
	if err = protojson.Unmarshal(contents, &values); err != nil {
		return nil, fmt.Errorf("decode store file: %w", err)
	}

	return &values, nil
}
