package config

import (
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"os"
	"sync"
	"time"
)

const saveDelay = 10 * time.Second

// ServerState keeps the lifetime counters of the board. Frames themselves are never saved.
type ServerState struct {
	serverStateConfig     ServerStateConfig
	lock                  sync.RWMutex
	backupTimer           *time.Timer
	completeStateFilename string
}

func NewServerState(completeStateFilename string) *ServerState {
	serverState := &ServerState{
		completeStateFilename: completeStateFilename,
	}

	rawConfig, err := os.ReadFile(completeStateFilename)
	if err == nil {
		// Interpret state file
		err = yaml.Unmarshal(rawConfig, &serverState.serverStateConfig)
		if err != nil {
			logrus.Fatalf("Unable to interpret state file: %v\n", err)
		}
	} else {
		logrus.Infof("Create default state file")
		serverState.lock.Lock()
		serverState.scheduleSave()
		serverState.lock.Unlock()
	}

	return serverState
}

func (ss *ServerState) OpenCount() int64 {
	ss.lock.RLock()
	defer ss.lock.RUnlock()

	return ss.serverStateConfig.OpenCount
}

func (ss *ServerState) IncOpenCount() int64 {
	ss.lock.Lock()
	defer ss.lock.Unlock()

	ss.serverStateConfig.OpenCount++
	ss.scheduleSave()
	return ss.serverStateConfig.OpenCount
}

func (ss *ServerState) FrameCount() int64 {
	ss.lock.RLock()
	defer ss.lock.RUnlock()

	return ss.serverStateConfig.FrameCount
}

func (ss *ServerState) IncFrameCount() int64 {
	ss.lock.Lock()
	defer ss.lock.Unlock()

	ss.serverStateConfig.FrameCount++
	ss.scheduleSave()
	return ss.serverStateConfig.FrameCount
}

func (ss *ServerState) scheduleSave() {
	if ss.backupTimer == nil {
		ss.backupTimer = time.AfterFunc(saveDelay, func() {
			ss.lock.Lock()
			defer ss.lock.Unlock()
			ss.save()
		})
	} else {
		ss.backupTimer.Reset(saveDelay)
	}
}

func (ss *ServerState) save() {
	logrus.Infof("Save state file: %s", ss.completeStateFilename)
	rawConfig, err := yaml.Marshal(&ss.serverStateConfig)
	if err != nil {
		logrus.Errorf("Unable to serialize state file: %v", err)
		return
	}
	err = os.WriteFile(ss.completeStateFilename, rawConfig, 0660)
	if err != nil {
		logrus.Errorf("Unable to save state file: %v", err)
	}
}

func (ss *ServerState) FlushSave() {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	if ss.backupTimer != nil {
		if ss.backupTimer.Stop() {
			ss.save()
		}
	}
}

type ServerStateConfig struct {
	OpenCount  int64 `yaml:"open_count"`
	FrameCount int64 `yaml:"frame_count"`
}
