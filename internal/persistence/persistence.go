package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/afancontrol/afancontrol/internal/ui"
)

const (
	BucketFanRpmCurves = "fanRpmCurves"
)

// Persistence stores the measured PWM to RPM curves produced by the
// fantest sweep, so later runs can be compared against earlier ones.
type Persistence interface {
	Init() error

	LoadFanRpmCurve(fanId string) (map[int]float64, error)
	SaveFanRpmCurve(fanId string, curve map[int]float64) (err error)
	DeleteFanRpmCurve(fanId string) (err error)
}

type persistence struct {
	dbPath string
}

func NewPersistence(dbPath string) Persistence {
	p := &persistence{
		dbPath: dbPath,
	}
	return p
}

func (p persistence) Init() (err error) {
	parentDir := filepath.Dir(p.dbPath)
	_, err = os.Stat(parentDir)
	if errors.Is(err, os.ErrNotExist) {
		ui.Info("Creating directory for db: %s", parentDir)
		err = os.MkdirAll(parentDir, 0755)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p persistence) openPersistence() (db *bolt.DB, err error) {
	db, err = bolt.Open(p.dbPath, 0600, &bolt.Options{Timeout: 1 * time.Minute})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func (p persistence) SaveFanRpmCurve(fanId string, curve map[int]float64) (err error) {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	data, err := json.Marshal(curve)
	if err != nil {
		return err
	}

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(BucketFanRpmCurves))
		if err != nil {
			return fmt.Errorf("create bucket: %s", err)
		}
		err = b.Put([]byte(fanId), data)
		return err
	})
}

func (p persistence) LoadFanRpmCurve(fanId string) (map[int]float64, error) {
	db, err := p.openPersistence()
	if err != nil {
		return nil, err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	var curve map[int]float64
	err = db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketFanRpmCurves))
		if b == nil {
			return os.ErrNotExist
		}
		v := b.Get([]byte(fanId))
		if v == nil {
			return os.ErrNotExist
		}

		err := json.Unmarshal(v, &curve)
		if err != nil {
			// if we cannot read the saved data, delete it
			ui.Warning("Unable to unmarshal saved fan curve for %s: %v", fanId, err)
			if deleteErr := b.Delete([]byte(fanId)); deleteErr != nil {
				ui.Error("Unable to delete corrupt data key %s: %v", fanId, deleteErr)
			}
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if curve == nil {
		return nil, os.ErrNotExist
	}
	return curve, nil
}

func (p persistence) DeleteFanRpmCurve(fanId string) (err error) {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketFanRpmCurves))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(fanId))
	})
}
