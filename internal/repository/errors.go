package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// isSQLite 方言判断；sqlite 不支持 SELECT ... FOR UPDATE
func isSQLite(db *gorm.DB) bool {
	return db.Dialector.Name() == "sqlite"
}
