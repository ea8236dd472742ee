package ardaku

import (
	"context"

	"github.com/ardaku/ardaku/buffer"
	"github.com/ardaku/ardaku/system"
	"github.com/ardaku/ardaku/trap"
)

// promptCommandSize is the size in bytes of the prompt portal's command
// payload: capacity_ref u32, text_ref u32.
const promptCommandSize = 8

// promptDispatch implements the Prompt portal. It queues an asynchronous
// read-line request with the embedder and always returns
// false: the request is not yet ready, and the embedder is responsible for
// appending ready to the ready list once it has captured a line, enforcing
// the destination buffer's capacity contract at that time.
func (st *guestState) promptDispatch(ctx context.Context, mem system.Memory, ready, size, data uint32) bool {
	if size != promptCommandSize {
		trap.Raise("prompt: payload size %d != %d", size, promptCommandSize)
	}

	payload, ok := mem.Read(data, promptCommandSize)
	if !ok {
		trap.Raise("prompt: payload out of bounds at %d", data)
	}

	cur := buffer.New(payload)
	capacityRef := cur.ReadU32()
	textRef := cur.ReadU32()

	st.metrics.promptsQueued.Inc()
	st.sys.ReadLine(ctx, mem, ready, textRef, capacityRef)

	return false
}
