package storage

import (
	"encoding/json"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/certledger/certledger/storage/model"
)

// KeyValueStorage implements model.KeyValueStore using GORM.
type KeyValueStorage struct {
	db *gorm.DB
}

// KeyValue returns the scoped key-value store.
func (s *Storage) KeyValue() *KeyValueStorage {
	return &KeyValueStorage{db: s.db}
}

// Get returns the stored value or nil if there is none.
func (s *KeyValueStorage) Get(scope, key string) (datatypes.JSON, error) {
	var kv model.KeyValue
	err := s.db.Where(map[string]any{"scope": scope, "key": key}).Take(&kv).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "kv: get %s/%s failed", scope, key)
	}
	if len(kv.Value) == 0 {
		return nil, nil
	}
	return kv.Value, nil
}

// Set stores value, replacing an existing one.
func (s *KeyValueStorage) Set(scope, key string, value datatypes.JSON) error {
	kv := model.KeyValue{
		Scope: scope,
		Key:   key,
		Value: value,
	}
	err := s.db.Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "scope"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		},
	).Create(&kv).Error
	return errors.Wrapf(err, "kv: set %s/%s failed", scope, key)
}

// Delete removes the entry; a missing entry is not an error.
func (s *KeyValueStorage) Delete(scope, key string) error {
	err := s.db.Where(map[string]any{"scope": scope, "key": key}).Delete(&model.KeyValue{}).Error
	return errors.Wrapf(err, "kv: delete %s/%s failed", scope, key)
}

// GetAs decodes the stored value into out and reports whether it existed.
func (s *KeyValueStorage) GetAs(scope, key string, out any) (bool, error) {
	raw, err := s.Get(scope, key)
	if err != nil || raw == nil {
		return false, err
	}
	if err = json.Unmarshal(raw, out); err != nil {
		return false, errors.Wrapf(err, "kv: decode %s/%s failed", scope, key)
	}
	return true, nil
}

// SetAny stores v encoded as JSON.
func (s *KeyValueStorage) SetAny(scope, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.WithStack(err)
	}
	return s.Set(scope, key, b)
}
