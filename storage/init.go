package storage

import (
	"TaskQuest/storage/database"
	"TaskQuest/storage/mq"
	"TaskQuest/storage/redis"
)

// Options 各二进制按需初始化
type Options struct {
	Database bool
	Redis    bool
	MQ       bool
}

func Init(opts Options) error {
	if opts.Database {
		if err := database.Init(); err != nil {
			return err
		}
	}

	if opts.Redis {
		if err := redis.Init(); err != nil {
			return err
		}
	}

	if opts.MQ {
		if err := mq.Init(); err != nil {
			return err
		}
	}

	return nil
}
