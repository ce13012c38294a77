package host1x

import (
	"time"

	"github.com/grate-driver/go-host1x/internal/drm"
)

type cmdbufEntry struct {
	bo     *BO
	offset uint32 // word offset
	words  uint32
}

type relocEntry struct {
	cmdbufHandle uint32
	cmdbufOffset uint32 // word offset
	target       *BO
	targetOffset uint32
	shift        uint32
}

// Job aggregates pushbuf gathers, relocations, and the total
// syncpoint-increment count for one SUBMIT ioctl, described as C6.
type Job struct {
	channel    *Channel
	syncptID   uint32
	increments uint32

	cmdbufs []cmdbufEntry
	relocs  []relocEntry

	pushbufs []*Pushbuf
	active   *Pushbuf

	submitted bool
}

// NewJob captures the channel and its chosen syncpoint id.
func (c *Channel) NewJob() *Job {
	return &Job{channel: c, syncptID: c.SyncptID()}
}

// AddCmdbuf appends a gather descriptor directly, taking its own
// reference on bo for the lifetime of the Job.
func (j *Job) AddCmdbuf(bo *BO, wordOffset, wordCount uint32) {
	bo.Ref()
	j.cmdbufs = append(j.cmdbufs, cmdbufEntry{bo: bo, offset: wordOffset, words: wordCount})
}

// AddReloc appends a relocation record directly, taking its own
// reference on target for the lifetime of the Job.
func (j *Job) AddReloc(cmdbufHandle uint32, cmdbufWordOffset uint32, target *BO, targetOffset, shift uint32) {
	target.Ref()
	j.relocs = append(j.relocs, relocEntry{
		cmdbufHandle: cmdbufHandle,
		cmdbufOffset: cmdbufWordOffset,
		target:       target,
		targetOffset: targetOffset,
		shift:        shift,
	})
}

// commitGather queues pb's currently-active gather, if non-empty, as a
// cmdbuf entry and takes the job's own reference on the backing BO.
func (j *Job) commitGather(pb *Pushbuf) {
	if pb.bo == nil || pb.currentWord == pb.startWord {
		return
	}
	j.AddCmdbuf(pb.bo, uint32(pb.startWord), uint32(pb.currentWord-pb.startWord))
	pb.startWord = pb.currentWord
	pb.state = PushbufQueued
}

func (j *Job) detachPushbuf(pb *Pushbuf) {
	for i, p := range j.pushbufs {
		if p == pb {
			j.pushbufs = append(j.pushbufs[:i], j.pushbufs[i+1:]...)
			break
		}
	}
	if j.active == pb {
		j.active = nil
	}
}

// SubmitOption customizes a single Job.Submit call.
type SubmitOption func(*drm.Submit)

// WithTimeout overrides the default submission timeout.
func WithTimeout(d time.Duration) SubmitOption {
	return func(s *drm.Submit) {
		s.Timeout = uint32(d.Milliseconds())
	}
}

// Submit commits the active pushbuf, builds the syncpoint/cmdbuf/reloc
// arrays, and issues the SUBMIT ioctl, returning a Fence on success.
func (j *Job) Submit(opts ...SubmitOption) (*Fence, error) {
	if j.active != nil && !j.active.freed {
		j.commitGather(j.active)
	}

	syncpts := []drm.Syncpt{{ID: j.syncptID, Incrs: j.increments}}

	cmdbufs := make([]drm.Cmdbuf, len(j.cmdbufs))
	for i, e := range j.cmdbufs {
		cmdbufs[i] = drm.Cmdbuf{Handle: e.bo.GetHandle(), Offset: e.offset * 4, Words: e.words}
	}

	relocs := make([]drm.Reloc, len(j.relocs))
	for i, e := range j.relocs {
		relocs[i] = drm.Reloc{
			CmdbufHandle: e.cmdbufHandle,
			CmdbufOffset: e.cmdbufOffset * 4,
			TargetHandle: e.target.GetHandle(),
			TargetOffset: e.targetOffset,
			Shift:        e.shift,
		}
	}

	req := &drm.Submit{Context: j.channel.context, Timeout: SubmitTimeoutMs}
	for _, opt := range opts {
		opt(req)
	}

	start := time.Now()
	fence, err := j.channel.dev.driver.Submit(req, syncpts, cmdbufs, relocs, nil)
	j.recordSubmit(time.Since(start))
	if err != nil {
		return nil, WrapError("Job.Submit", err)
	}

	j.submitted = true
	return &Fence{dev: j.channel.dev, syncptID: j.syncptID, value: fence}, nil
}

func (j *Job) recordSubmit(d time.Duration) {
	if obs := j.channel.dev.obs; obs != nil {
		obs.RecordSubmit(d.Nanoseconds())
	}
}

// Free unrefs every BO referenced by cmdbufs and relocations, and frees
// any pushbuf still attached to this job.
func (j *Job) Free() {
	for _, e := range j.cmdbufs {
		e.bo.Unref()
	}
	for _, e := range j.relocs {
		e.target.Unref()
	}
	for _, pb := range append([]*Pushbuf(nil), j.pushbufs...) {
		_ = pb.Free()
	}
	j.cmdbufs = nil
	j.relocs = nil
}
