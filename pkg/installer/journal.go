package installer

import (
	"fmt"

	"github.com/macwinusb/winusb/pkg/db"
)

// Run statuses written to the journal.
const (
	StatusPrepared     = db.StatusPrepared
	StatusCopied       = db.StatusCopied
	StatusComplete     = db.StatusComplete
	StatusDetachFailed = db.StatusDetachFailed
	StatusFailed       = db.StatusFailed
)

// Journal records the progress of one run.
type Journal interface {
	Begin(in Inputs) error
	Mounted(mountPoint string) error
	Advance(status string) error
	Released() error
	Finish(status string, res *Result, cause error) error
}

type nopJournal struct{}

func (nopJournal) Begin(Inputs) error { return nil }
func (nopJournal) Mounted(string) error { return nil }
func (nopJournal) Advance(string) error { return nil }
func (nopJournal) Released() error { return nil }
func (nopJournal) Finish(string, *Result, error) error { return nil }

// DBJournal writes run progress to the run history database.
type DBJournal struct {
	repo *db.Repository
	run  *db.Run
}

// NewDBJournal creates a journal backed by repo.
func NewDBJournal(repo *db.Repository) *DBJournal {
	return &DBJournal{repo: repo}
}

func (j *DBJournal) Begin(in Inputs) error {
	run := &db.Run{
		RunKey:      in.RunKey,
		SourceImage: in.SourceImage,
		SHA256:      in.SHA256,
		Device:      in.Device,
		Status:      db.StatusPending,
	}
	if err := j.repo.Create(run); err != nil {
		return err
	}
	j.run = run
	return nil
}

func (j *DBJournal) Mounted(mountPoint string) error {
	if j.run == nil {
		return fmt.Errorf("journal: no run started")
	}
	j.run.MountPoint = mountPoint
	j.run.Status = db.StatusMounted
	return j.repo.Update(j.run)
}

func (j *DBJournal) Advance(status string) error {
	if j.run == nil {
		return fmt.Errorf("journal: no run started")
	}
	j.run.Status = status
	return j.repo.UpdateStatus(j.run.ID, status, j.run.ErrorMessage)
}

func (j *DBJournal) Released() error {
	if j.run == nil {
		return fmt.Errorf("journal: no run started")
	}
	j.run.MountPoint = ""
	return j.repo.Update(j.run)
}

func (j *DBJournal) Finish(status string, res *Result, cause error) error {
	if j.run == nil {
		return fmt.Errorf("journal: no run started")
	}
	j.run.Status = status
	if res != nil {
		j.run.PayloadAction = string(res.Payload.Action)
		j.run.PayloadSize = res.Payload.Size
	}
	if cause != nil {
		j.run.ErrorMessage = cause.Error()
	}
	return j.repo.Update(j.run)
}
