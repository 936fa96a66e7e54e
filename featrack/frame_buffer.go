package featrack

import "image"

// FrameBuffer is bounded ring buffer of frames.
// Insertion always appends; once size exceeds capacity the oldest frame is evicted.
// FrameBuffer is not safe for concurrent use: Pipeline serializes access to it.
type FrameBuffer struct {
	frames   []*Frame
	capacity int
	nextSeq  uint64
}

// NewFrameBuffer creates buffer holding at most capacity frames. Capacity less than 1 is treated as 1
func NewFrameBuffer(capacity int) *FrameBuffer {
	capacity = maxInt(capacity, 1)
	return &FrameBuffer{
		frames:   make([]*Frame, 0, capacity+1),
		capacity: capacity,
	}
}

// Push creates new frame for image, appends it and returns it
func (fb *FrameBuffer) Push(img *image.Gray) *Frame {
	return fb.Append(NewFrame(img))
}

// Append appends already built frame, evicts the oldest ones beyond capacity and returns the frame
func (fb *FrameBuffer) Append(frame *Frame) *Frame {
	frame.Seq = fb.nextSeq
	fb.nextSeq++
	fb.frames = append(fb.frames, frame)
	for len(fb.frames) > fb.capacity {
		fb.evictOldest()
	}
	return frame
}

// evictOldest drops the first frame. Vacated slot is cleared so evicted frame could be collected
func (fb *FrameBuffer) evictOldest() {
	copy(fb.frames, fb.frames[1:])
	fb.frames[len(fb.frames)-1] = nil
	fb.frames = fb.frames[:len(fb.frames)-1]
}

// Current returns the newest frame or nil if buffer is empty
func (fb *FrameBuffer) Current() *Frame {
	if len(fb.frames) == 0 {
		return nil
	}
	return fb.frames[len(fb.frames)-1]
}

// Previous returns the second newest frame or nil if there are less than 2 frames
func (fb *FrameBuffer) Previous() *Frame {
	if len(fb.frames) < 2 {
		return nil
	}
	return fb.frames[len(fb.frames)-2]
}

// Len returns number of buffered frames
func (fb *FrameBuffer) Len() int {
	return len(fb.frames)
}

// Cap returns buffer's capacity
func (fb *FrameBuffer) Cap() int {
	return fb.capacity
}

// Frames returns buffered frames from the oldest to the newest
func (fb *FrameBuffer) Frames() []*Frame {
	out := make([]*Frame, len(fb.frames))
	copy(out, fb.frames)
	return out
}

// Reset releases every buffered frame
func (fb *FrameBuffer) Reset() {
	for i := range fb.frames {
		fb.frames[i] = nil
	}
	fb.frames = fb.frames[:0]
}
