package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/scorecard/internal/adapters/mq/queue"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a queue with capacity 2", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		Convey("Then it starts empty", func() {
			So(q.Len(ctx), ShouldEqual, 0)
			So(q.Cap(), ShouldEqual, 2)
			So(q.IsClosed(), ShouldBeFalse)
		})

		Convey("When requests are enqueued past capacity", func() {
			So(q.Enqueue(ctx, queue.Request{Reason: "score", Generation: 1}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Request{Reason: "score", Generation: 2}), ShouldBeTrue)

			Convey("Then the overflow is dropped", func() {
				So(q.Enqueue(ctx, queue.Request{Reason: "score", Generation: 3}), ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 2)
			})

			Convey("Then they come out in order", func() {
				dctx, cancel := context.WithCancel(ctx)
				defer cancel()
				ch := q.Dequeue(dctx)
				first := <-ch
				second := <-ch
				So(first.Generation, ShouldEqual, 1)
				So(second.Generation, ShouldEqual, 2)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			Convey("Then enqueue fails", func() {
				So(q.Enqueue(cctx, queue.Request{Reason: "submit"}), ShouldBeFalse)
			})
		})

		Convey("When the queue is closed", func() {
			So(q.Enqueue(ctx, queue.Request{Reason: "pending"}), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then new requests are rejected", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, queue.Request{Reason: "late"}), ShouldBeFalse)
			})

			Convey("Then pending requests drain and the channel closes", func() {
				ch := q.Dequeue(ctx)
				r, ok := <-ch
				So(ok, ShouldBeTrue)
				So(r.Reason, ShouldEqual, "pending")

				select {
				case _, ok = <-ch:
					So(ok, ShouldBeFalse)
				case <-time.After(time.Second):
					So("dequeue channel not closed", ShouldBeEmpty)
				}
			})
		})
	})
}
