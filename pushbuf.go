package host1x

import "encoding/binary"

// PushbufState is the lifecycle stage of a Pushbuf, matching the
// Empty → HasBacking → Queued → Freed progression.
type PushbufState int

const (
	PushbufEmpty PushbufState = iota
	PushbufHasBacking
	PushbufQueued
	PushbufFreed
)

// Pushbuf is an append-only word writer over a contiguous region of a
// BO, described as C5. It may switch to a fresh backing BO over its
// lifetime; each switch commits the outgoing gather into the owning Job.
type Pushbuf struct {
	job   *Job
	bo    *BO
	words []byte // pb.bo's mapping, reinterpreted as a word array

	startWord   int
	currentWord int
	endWord     int

	state PushbufState
	freed bool
}

// NewPushbuf creates a pushbuf with no backing BO yet; the first Push or
// Relocate call requires a preceding Prepare.
func (j *Job) NewPushbuf() *Pushbuf {
	pb := &Pushbuf{job: j, state: PushbufEmpty}
	j.pushbufs = append(j.pushbufs, pb)
	j.active = pb
	return pb
}

// Prepare guarantees at least n free words are available, allocating a
// fresh backing BO and committing the outgoing gather if needed.
func (pb *Pushbuf) Prepare(n int) error {
	if pb.bo != nil && pb.currentWord+n <= pb.endWord {
		return nil
	}
	if pb.bo != nil {
		pb.job.commitGather(pb)
	}

	wordsNeeded := n
	if wordsNeeded < DefaultPushbufWords {
		wordsNeeded = DefaultPushbufWords
	}
	sizeBytes := roundUpPage(uint64(wordsNeeded) * 4)

	bo, err := pb.job.channel.dev.NewBO(0, sizeBytes)
	if err != nil {
		return WrapError("Pushbuf.Prepare", err)
	}
	mapped, err := bo.Map()
	if err != nil {
		bo.Unref()
		return WrapError("Pushbuf.Prepare", err)
	}

	pb.bo = bo
	pb.words = mapped
	pb.startWord = 0
	pb.currentWord = 0
	pb.endWord = len(mapped) / 4
	pb.state = PushbufHasBacking
	return nil
}

// Push writes one word and advances current. It fails if the pushbuf
// has no backing BO or is out of prepared room.
func (pb *Pushbuf) Push(word uint32) error {
	if pb.bo == nil {
		return NewError("Pushbuf.Push", CodeInvalid, "no backing BO; call Prepare first")
	}
	if pb.currentWord >= pb.endWord {
		return NewError("Pushbuf.Push", CodeInvalid, "pushbuf full; call Prepare first")
	}
	binary.LittleEndian.PutUint32(pb.words[pb.currentWord*4:], word)
	pb.currentWord++
	return nil
}

// Relocate records a relocation at the current word (cmdbuf-offset,
// target handle, target offset, shift), then writes a sentinel word
// that the kernel overwrites with the patched pointer on submit.
func (pb *Pushbuf) Relocate(target *BO, targetOffset, shift uint32) error {
	if pb.bo == nil {
		return NewError("Pushbuf.Relocate", CodeInvalid, "no backing BO; call Prepare first")
	}
	pb.job.AddReloc(pb.bo.GetHandle(), uint32(pb.currentWord), target, targetOffset, shift)
	return pb.Push(0xDEADBEEF)
}

// Sync emits HOST1X_OPCODE_NONINCR(0,1) followed by (cond<<8)|syncpt_id
// and increments the job's total syncpoint-increment count.
func (pb *Pushbuf) Sync(cond uint32) error {
	if err := pb.Push(host1xOpcodeNonincr(0, 1)); err != nil {
		return err
	}
	if err := pb.Push((cond << 8) | pb.job.channel.SyncptID()); err != nil {
		return err
	}
	pb.job.increments++
	return nil
}

// Free unmaps the current BO, drops the pushbuf's own reference to it
// (any job-held reference from a prior commit survives independently),
// and detaches from the job's pushbuf list.
func (pb *Pushbuf) Free() error {
	if pb.freed {
		return nil
	}
	if pb.bo != nil {
		_ = pb.bo.Unmap()
		pb.bo.Unref()
	}
	pb.freed = true
	pb.state = PushbufFreed
	pb.job.detachPushbuf(pb)
	return nil
}

// host1xOpcodeNonincr matches the HOST1X_OPCODE_NONINCR(offset, count)
// macro: a non-incrementing register write opcode word.
func host1xOpcodeNonincr(offset, count uint32) uint32 {
	return (0x2 << 28) | (offset << 16) | count
}
