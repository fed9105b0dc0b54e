package shuffle

import (
	"container/heap"

	"github.com/pkg/errors"

	slippi "github.com/slippicodec/go-slippi-codec"
	"github.com/slippicodec/go-slippi-codec/schema"
)

// Bin indices, fixed order per compressor.cpp's groupByTypeAndPlayer: 20
// bins total — frame_start(1), pre_frame x8 (players 0-3 then followers
// 4-7), item_update(1), post_frame x8, bookend(1), split_msg(1).
const (
	binFrameStart = iota
	binPreFrame0
	binPreFrame1
	binPreFrame2
	binPreFrame3
	binPreFrame4
	binPreFrame5
	binPreFrame6
	binPreFrame7
	binItemUpdate
	binPostFrame0
	binPostFrame1
	binPostFrame2
	binPostFrame3
	binPostFrame4
	binPostFrame5
	binPostFrame6
	binPostFrame7
	binBookend
	binSplitMessage
	binCount
)

// deferWindow is the size of the rollback circular buffer indexed by
// (frame+256) mod 4, tracking how many times each of the last four frame
// slots has been duplicated by a rollback.
const deferWindow = 4

// deferBitsMask reserves the action id's top two bits for the rollback
// dupe-count delta (mask 0xC000), per spec.md's variable-length encoding
// of rollback note.
const deferBitsMask uint16 = 0xC000

// ErrDeferBitsInUse is returned by Shuffle when a frame's action id
// already has its top two bits set, so the rollback dupe-count cannot be
// written without clobbering real data. The original source never checks
// for this; this implementation refuses rather than silently corrupting
// the field.
var ErrDeferBitsInUse = errors.New("shuffle: rollback defer bits already in use on action state id")

// Shuffled holds the 20 shuffled bins, each already column-transposed,
// plus the bookkeeping needed to unshuffle: per-bin row counts and frame
// numbers (since column transposition discards row boundaries, and the
// frame number is carried out-of-band rather than as a transposed column,
// matching the source format's separate event header per record).
type Shuffled struct {
	Bins      [binCount][]byte
	RowCounts [binCount]int
	// FrameNumbers lists, per bin, the frame number each row belonged to;
	// split_msg isn't per-frame and has no entry here.
	FrameNumbers [binCount][]int32
	// SplitMessage carries the raw gecko-codes blob untouched, the one
	// payload in the stream that arrives pre-split into MessageSplitter
	// chunks rather than as a single per-frame event; it bypasses Pass B's
	// column transpose entirely and rides alongside the 20 bins.
	SplitMessage []byte
}

// Shuffle performs Pass A (group by event type and player) followed by
// Pass B (column transpose) over every frame in frames, in ascending
// frame order. geckoCodes is a raw gecko-codes blob supplied by the
// caller, carried through unshuffled as SplitMessage.
func Shuffle(frames map[int32]slippi.FrameEntry, geckoCodes []byte) (*Shuffled, error) {
	frameNums := sortedFrames(frames)

	preRows := make([8][][]byte, 8)
	postRows := make([8][][]byte, 8)
	preFrames := make([8][]int32, 8)
	postFrames := make([8][]int32, 8)
	var itemRows [][]byte
	var itemFrames []int32
	itemLastSeen := make(map[uint32]int32)
	var startRows [][]byte
	var startFrames []int32
	var bookendRows [][]byte
	var bookendFrames []int32

	var dupeBuf [deferWindow]int
	var lastFrameSeen int32 = -1000000

	for _, fn := range frameNums {
		frame := frames[fn]

		dupeSlot := int(((fn%deferWindow)+deferWindow)%deferWindow)
		if fn != lastFrameSeen {
			dupeBuf[dupeSlot] = 0
		}
		dupeCount := dupeBuf[dupeSlot]
		dupeBuf[dupeSlot]++
		lastFrameSeen = fn

		if frame.Start != nil {
			startRows = append(startRows, serializeFrameStart(frame.Start))
			startFrames = append(startFrames, fn)
		}
		if frame.Bookend != nil {
			bookendRows = append(bookendRows, serializeBookend(frame.Bookend))
			bookendFrames = append(bookendFrames, fn)
		}

		for idx, upd := range frame.Players {
			if upd.Pre != nil {
				if err := applyDeferBits(upd.Pre, dupeCount); err != nil {
					return nil, err
				}
				slot := int(idx)
				preRows[slot] = append(preRows[slot], serializePreFrame(upd.Pre))
				preFrames[slot] = append(preFrames[slot], fn)
			}
			if upd.Post != nil {
				slot := int(idx)
				postRows[slot] = append(postRows[slot], serializePostFrame(upd.Post))
				postFrames[slot] = append(postFrames[slot], fn)
			}
		}
		for idx, upd := range frame.Followers {
			if upd.Pre != nil {
				if err := applyDeferBits(upd.Pre, dupeCount); err != nil {
					return nil, err
				}
				slot := int(idx) + 4
				preRows[slot] = append(preRows[slot], serializePreFrame(upd.Pre))
				preFrames[slot] = append(preFrames[slot], fn)
			}
			if upd.Post != nil {
				slot := int(idx) + 4
				postRows[slot] = append(postRows[slot], serializePostFrame(upd.Post))
				postFrames[slot] = append(postFrames[slot], fn)
			}
		}
		if len(frame.Items) > 0 {
			// Item sub-shuffle: items within a frame are reordered by how
			// long it's been since their spawn id last appeared, using a
			// min-heap the way the source reconstruction pass does, so
			// items that update every frame cluster together regardless
			// of the order the game emitted them in.
			h := make(itemWaitHeap, len(frame.Items))
			for i := range frame.Items {
				it := frame.Items[i]
				last, seen := itemLastSeen[it.SpawnID]
				wait := fn
				if seen {
					wait = fn - last
				}
				h[i] = itemWaitEntry{spawnID: it.SpawnID, waitSince: wait, row: serializeItem(&it)}
				itemLastSeen[it.SpawnID] = fn
			}
			heap.Init(&h)
			for h.Len() > 0 {
				e := heap.Pop(&h).(itemWaitEntry)
				itemRows = append(itemRows, e.row)
				itemFrames = append(itemFrames, fn)
			}
		}
	}

	out := &Shuffled{}
	for slot := 0; slot < 8; slot++ {
		bin := binPreFrame0 + slot
		out.Bins[bin] = transposeWithSigns(preRows[slot], preFrameWidths, schema.PreFrameColumns())
		out.RowCounts[bin] = len(preRows[slot])
		out.FrameNumbers[bin] = preFrames[slot]

		pbin := binPostFrame0 + slot
		out.Bins[pbin] = transposeWithSigns(postRows[slot], postFrameWidths, schema.PostFrameColumns())
		out.RowCounts[pbin] = len(postRows[slot])
		out.FrameNumbers[pbin] = postFrames[slot]
	}
	out.Bins[binItemUpdate] = transposeWithSigns(itemRows, itemWidths, schema.ItemColumns())
	out.RowCounts[binItemUpdate] = len(itemRows)
	out.FrameNumbers[binItemUpdate] = itemFrames

	out.Bins[binFrameStart] = transposeWithSigns(startRows, frameStartWidths, schema.FrameStartColumns())
	out.RowCounts[binFrameStart] = len(startRows)
	out.FrameNumbers[binFrameStart] = startFrames

	out.Bins[binBookend] = transposeWithSigns(bookendRows, bookendWidths, schema.FrameBookendColumns())
	out.RowCounts[binBookend] = len(bookendRows)
	out.FrameNumbers[binBookend] = bookendFrames

	out.Bins[binSplitMessage] = geckoCodes
	out.SplitMessage = geckoCodes

	return out, nil
}

// Unshuffle reverses Shuffle, reconstructing a frame map from the 20 bins
// plus the gecko-codes blob carried alongside them.
func Unshuffle(s *Shuffled) (map[int32]slippi.FrameEntry, []byte, error) {
	frames := make(map[int32]slippi.FrameEntry)

	ensure := func(fn int32) slippi.FrameEntry {
		f, ok := frames[fn]
		if !ok {
			f = slippi.FrameEntry{
				Players:   make(map[uint8]slippi.FrameUpdates),
				Followers: make(map[uint8]slippi.FrameUpdates),
			}
			frames[fn] = f
		}
		return f
	}

	for slot := 0; slot < 8; slot++ {
		bin := binPreFrame0 + slot
		rows := untransposeWithSigns(s.Bins[bin], preFrameWidths, schema.PreFrameColumns(), s.RowCounts[bin])
		for i, row := range rows {
			fn := s.FrameNumbers[bin][i]
			follower := slot >= 4
			playerIdx := uint8(slot)
			if follower {
				playerIdx = uint8(slot - 4)
			}
			pre := deserializePreFrame(row, fn, playerIdx, follower)
			stripDeferBits(pre)
			f := ensure(fn)
			var m map[uint8]slippi.FrameUpdates
			if follower {
				m = f.Followers
			} else {
				m = f.Players
			}
			upd := m[playerIdx]
			upd.Pre = pre
			m[playerIdx] = upd
		}

		pbin := binPostFrame0 + slot
		prows := untransposeWithSigns(s.Bins[pbin], postFrameWidths, schema.PostFrameColumns(), s.RowCounts[pbin])
		for i, row := range prows {
			fn := s.FrameNumbers[pbin][i]
			follower := slot >= 4
			playerIdx := uint8(slot)
			if follower {
				playerIdx = uint8(slot - 4)
			}
			post := deserializePostFrame(row, fn, playerIdx, follower)
			f := ensure(fn)
			var m map[uint8]slippi.FrameUpdates
			if follower {
				m = f.Followers
			} else {
				m = f.Players
			}
			upd := m[playerIdx]
			upd.Post = post
			m[playerIdx] = upd
		}
	}

	itemRows := untransposeWithSigns(s.Bins[binItemUpdate], itemWidths, schema.ItemColumns(), s.RowCounts[binItemUpdate])
	for i, row := range itemRows {
		fn := s.FrameNumbers[binItemUpdate][i]
		it := deserializeItem(row, fn)
		f := ensure(fn)
		f.Items = append(f.Items, *it)
		frames[fn] = f
	}

	startRows := untransposeWithSigns(s.Bins[binFrameStart], frameStartWidths, schema.FrameStartColumns(), s.RowCounts[binFrameStart])
	for i, row := range startRows {
		fn := s.FrameNumbers[binFrameStart][i]
		f := ensure(fn)
		f.Start = deserializeFrameStart(row, fn)
		frames[fn] = f
	}

	bookendRows := untransposeWithSigns(s.Bins[binBookend], bookendWidths, schema.FrameBookendColumns(), s.RowCounts[binBookend])
	for i, row := range bookendRows {
		fn := s.FrameNumbers[binBookend][i]
		f := ensure(fn)
		f.Bookend = deserializeBookend(row, fn)
		frames[fn] = f
	}

	return frames, s.Bins[binSplitMessage], nil
}

func sortedFrames(frames map[int32]slippi.FrameEntry) []int32 {
	nums := make([]int32, 0, len(frames))
	for fn := range frames {
		nums = append(nums, fn)
	}
	for i := 1; i < len(nums); i++ {
		for j := i; j > 0 && nums[j-1] > nums[j]; j-- {
			nums[j-1], nums[j] = nums[j], nums[j-1]
		}
	}
	return nums
}

// applyDeferBits writes dupeCount into the reserved top two bits of the
// pre-frame action state id, refusing if they're already in use.
func applyDeferBits(p *slippi.PreFrameUpdatePayload, dupeCount int) error {
	if p.ActionStateID&deferBitsMask != 0 {
		return ErrDeferBitsInUse
	}
	p.ActionStateID |= uint16(dupeCount&0x3) << 14
	return nil
}

func stripDeferBits(p *slippi.PreFrameUpdatePayload) {
	p.ActionStateID &= ^deferBitsMask
}

// transposeWithSigns dispatches each column to byte-level or bit-plane
// transpose depending on the sign of its schema width.
func transposeWithSigns(rows [][]byte, absWidths []int, signed schema.ColumnWidths) []byte {
	if len(rows) == 0 {
		return nil
	}
	var out []byte
	off := 0
	for col, w := range absWidths {
		sign := 1
		if col < len(signed) && signed[col] < 0 {
			sign = -1
		}
		if sign < 0 && w == 1 {
			values := make([]byte, len(rows))
			for i, row := range rows {
				values[i] = row[off]
			}
			out = append(out, transposeBitPlane(values)...)
		} else {
			for _, row := range rows {
				out = append(out, row[off:off+w]...)
			}
		}
		off += w
	}
	return out
}

func untransposeWithSigns(buf []byte, absWidths []int, signed schema.ColumnWidths, rowCount int) [][]byte {
	rows := make([][]byte, rowCount)
	for i := range rows {
		rows[i] = make([]byte, rowWidth(absWidths))
	}
	pos := 0
	off := 0
	for col, w := range absWidths {
		sign := 1
		if col < len(signed) && signed[col] < 0 {
			sign = -1
		}
		if sign < 0 && w == 1 {
			planes := (rowCount + 7) / 8
			chunk := buf[pos : pos+planes*8]
			values := untransposeBitPlane(chunk, rowCount)
			for i := 0; i < rowCount; i++ {
				rows[i][off] = values[i]
			}
			pos += planes * 8
		} else {
			for i := 0; i < rowCount; i++ {
				copy(rows[i][off:off+w], buf[pos:pos+w])
				pos += w
			}
		}
		off += w
	}
	return rows
}

// itemWaitEntry is the priority-queue element used by the item
// sub-shuffle's reconstruction pass: items are reordered by how long they
// waited since their previous update, and a min-heap (container/heap,
// stdlib — neither the teacher nor the rest of the pack carries a
// priority-queue dependency, see DESIGN.md) restores emission order.
type itemWaitEntry struct {
	spawnID   uint32
	waitSince int32
	row       []byte
}

type itemWaitHeap []itemWaitEntry

func (h itemWaitHeap) Len() int            { return len(h) }
func (h itemWaitHeap) Less(i, j int) bool  { return h[i].waitSince < h[j].waitSince }
func (h itemWaitHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *itemWaitHeap) Push(x interface{}) { *h = append(*h, x.(itemWaitEntry)) }
func (h *itemWaitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

var _ heap.Interface = (*itemWaitHeap)(nil)
