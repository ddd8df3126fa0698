// Package engine assembles the storage stack: configuration, logging, the
// disk manager and the buffer pool, plus the no-op lock/log hooks handed to
// heaps and trees.
package engine

import (
	"os"

	"github.com/juju/errors"

	"xminidb/basic"
	"xminidb/buffer_pool"
	"xminidb/conf"
	"xminidb/logger"
	"xminidb/storage/disk"
)

// StorageEngine is one open database: a disk manager over one file and a
// buffer pool above it. Lifetime: one per database.
type StorageEngine struct {
	cfg         *conf.Cfg
	diskManager *disk.DiskManager
	bufferPool  *buffer_pool.BufferPool
	lockManager *basic.LockManager
	logManager  *basic.LogManager
}

// Open boots the engine from cfg: logging first, then the data file and the
// buffer pool over it.
func Open(cfg *conf.Cfg) (*StorageEngine, error) {
	if err := logger.InitLogger(logger.LogConfig{
		ErrorLogPath: cfg.LogError,
		InfoLogPath:  cfg.LogInfos,
		LogLevel:     cfg.LogLevel,
	}); err != nil {
		return nil, errors.Trace(err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, errors.Annotatef(err, "create data dir %s", cfg.DataDir)
	}

	diskManager, err := disk.NewDiskManager(cfg.DataFilePath(), cfg.PageSize, cfg.Checksum)
	if err != nil {
		return nil, errors.Trace(err)
	}

	logger.Infof("storage engine open: %s (page size %d, pool %d frames)",
		cfg.DataFilePath(), cfg.PageSize, cfg.BufferPoolSize)

	return &StorageEngine{
		cfg:         cfg,
		diskManager: diskManager,
		bufferPool:  buffer_pool.NewBufferPool(cfg.BufferPoolSize, diskManager),
		lockManager: basic.NewLockManager(),
		logManager:  basic.NewLogManager(),
	}, nil
}

// Close flushes every resident page and closes the data file.
func (se *StorageEngine) Close() error {
	se.bufferPool.FlushAll()
	return se.diskManager.Close()
}

func (se *StorageEngine) Cfg() *conf.Cfg {
	return se.cfg
}

func (se *StorageEngine) BufferPool() *buffer_pool.BufferPool {
	return se.bufferPool
}

func (se *StorageEngine) DiskManager() *disk.DiskManager {
	return se.diskManager
}

func (se *StorageEngine) LockManager() *basic.LockManager {
	return se.lockManager
}

func (se *StorageEngine) LogManager() *basic.LogManager {
	return se.logManager
}
