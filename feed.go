package main

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"net"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// The command feed is a framed little-endian TCP stream of discrete device
// events. Each frame is a one-byte opcode followed by its payload.
const (
	opGeometry uint8 = 0x01
	opGain     uint8 = 0x02
	opClear    uint8 = 0x03
	opPause    uint8 = 0x04
	opResume   uint8 = 0x05
)

// Hard cap on per-frame element counts so a malformed header cannot trigger
// a huge allocation.
const maxFeedElements = 65536

type feedEventKind uint8

const (
	feedGeometry feedEventKind = iota + 1
	feedGain
	feedClear
	feedPause
	feedResume
)

// deviceGeometry is one device placement: the position of transducer (0,0)
// and the unit vectors spanning the transducer grid.
type deviceGeometry struct {
	origin mgl32.Vec3
	right  mgl32.Vec3
	up     mgl32.Vec3
}

// feedEvent is one decoded command frame.
type feedEvent struct {
	kind    feedEventKind
	devices []deviceGeometry
	duties  []uint8
	phases  []uint8
}

// isMissingTransducer reports grid positions with no transducer fitted on
// the device PCB.
func isMissingTransducer(x, y int) bool {
	return y == 13 && (x == 1 || x == 2 || x == 16)
}

// makeDeviceTransducers expands one device placement into its transducer
// grid, forward axis right × up.
func makeDeviceTransducers(geo deviceGeometry) []soundSource {
	axis := geo.right.Cross(geo.up)
	sources := make([]soundSource, 0, numTransX*numTransY)
	for y := 0; y < numTransY; y++ {
		for x := 0; x < numTransX; x++ {
			if isMissingTransducer(x, y) {
				continue
			}
			pos := geo.origin.
				Add(geo.right.Mul(transSpacing * float32(x))).
				Add(geo.up.Mul(transSpacing * float32(y)))
			sources = append(sources, soundSource{pos: pos, dir: axis})
		}
	}
	return sources
}

// gainAmp converts a device duty byte into a normalized amplitude.
func gainAmp(duty uint8) float32 {
	return math32.Sin(float32(duty) / 510 * math32.Pi)
}

// gainPhase converts a device phase byte into radians in [0, 2π).
func gainPhase(p uint8) float32 {
	return math32.Mod(twoPi*(1-float32(p)/255), twoPi)
}

// applyFeedEvent mutates the source array for one event and returns the
// amplitude snapshot to carry across Pause/Resume.
func applyFeedEvent(ev feedEvent, arr *sourceArray, savedAmps []float32) []float32 {
	switch ev.kind {
	case feedGeometry:
		var sources []soundSource
		for _, geo := range ev.devices {
			sources = append(sources, makeDeviceTransducers(geo)...)
		}
		arr.Reset(sources)
	case feedGain:
		amps := make([]float32, len(ev.duties))
		phases := make([]float32, len(ev.phases))
		for i, d := range ev.duties {
			amps[i] = gainAmp(d)
		}
		for i, p := range ev.phases {
			phases[i] = gainPhase(p)
		}
		if err := arr.UpdateDrive(amps, phases); err != nil {
			log.Printf("drive update: %v (%d values for %d sources)", err, len(amps), arr.Len())
		}
	case feedClear:
		arr.ClearDrive()
	case feedPause:
		savedAmps = arr.SnapshotDrive()
	case feedResume:
		arr.RestoreDrive(savedAmps)
		savedAmps = nil
	}
	return savedAmps
}

// readFeedEvent decodes one frame from the stream.
func readFeedEvent(r io.Reader) (feedEvent, error) {
	var op uint8
	if err := binary.Read(r, binary.LittleEndian, &op); err != nil {
		return feedEvent{}, err
	}
	switch op {
	case opGeometry:
		var count uint32
		if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
			return feedEvent{}, fmt.Errorf("geometry header: %w", err)
		}
		if count > maxFeedElements {
			return feedEvent{}, fmt.Errorf("geometry frame claims %d devices", count)
		}
		devices := make([]deviceGeometry, count)
		for i := range devices {
			var raw [9]float32
			if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
				return feedEvent{}, fmt.Errorf("geometry payload: %w", err)
			}
			devices[i] = deviceGeometry{
				origin: mgl32.Vec3{raw[0], raw[1], raw[2]},
				right:  mgl32.Vec3{raw[3], raw[4], raw[5]},
				up:     mgl32.Vec3{raw[6], raw[7], raw[8]},
			}
		}
		return feedEvent{kind: feedGeometry, devices: devices}, nil
	case opGain:
		var count uint32
		if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
			return feedEvent{}, fmt.Errorf("gain header: %w", err)
		}
		if count > maxFeedElements {
			return feedEvent{}, fmt.Errorf("gain frame claims %d values", count)
		}
		duties := make([]uint8, count)
		phases := make([]uint8, count)
		if _, err := io.ReadFull(r, duties); err != nil {
			return feedEvent{}, fmt.Errorf("gain duties: %w", err)
		}
		if _, err := io.ReadFull(r, phases); err != nil {
			return feedEvent{}, fmt.Errorf("gain phases: %w", err)
		}
		return feedEvent{kind: feedGain, duties: duties, phases: phases}, nil
	case opClear:
		return feedEvent{kind: feedClear}, nil
	case opPause:
		return feedEvent{kind: feedPause}, nil
	case opResume:
		return feedEvent{kind: feedResume}, nil
	}
	return feedEvent{}, fmt.Errorf("unknown opcode 0x%02x", op)
}

// writeFeedEvent encodes one frame; the inverse of readFeedEvent, used by
// tests and simulated senders.
func writeFeedEvent(w io.Writer, ev feedEvent) error {
	switch ev.kind {
	case feedGeometry:
		if err := binary.Write(w, binary.LittleEndian, opGeometry); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(ev.devices))); err != nil {
			return err
		}
		for _, d := range ev.devices {
			raw := [9]float32{
				d.origin.X(), d.origin.Y(), d.origin.Z(),
				d.right.X(), d.right.Y(), d.right.Z(),
				d.up.X(), d.up.Y(), d.up.Z(),
			}
			if err := binary.Write(w, binary.LittleEndian, raw); err != nil {
				return err
			}
		}
		return nil
	case feedGain:
		if len(ev.duties) != len(ev.phases) {
			return errors.New("gain frame needs matching duty and phase counts")
		}
		if err := binary.Write(w, binary.LittleEndian, opGain); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(ev.duties))); err != nil {
			return err
		}
		if _, err := w.Write(ev.duties); err != nil {
			return err
		}
		_, err := w.Write(ev.phases)
		return err
	case feedClear:
		return binary.Write(w, binary.LittleEndian, opClear)
	case feedPause:
		return binary.Write(w, binary.LittleEndian, opPause)
	case feedResume:
		return binary.Write(w, binary.LittleEndian, opResume)
	}
	return fmt.Errorf("unknown event kind %d", ev.kind)
}

// feedServer listens for the device link and queues decoded events for the
// render loop to drain at the start of each tick.
type feedServer struct {
	listener net.Listener
	events   chan feedEvent
	done     chan struct{}
}

// newFeedServer starts listening on the local port.
func newFeedServer(port int) (*feedServer, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("listening for command feed: %w", err)
	}
	s := &feedServer{
		listener: ln,
		events:   make(chan feedEvent, feedQueueDepth),
		done:     make(chan struct{}),
	}
	go s.serve()
	return s, nil
}

// serve accepts one connection at a time; the device link is exclusive.
func (s *feedServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			log.Printf("feed accept: %v", err)
			continue
		}
		log.Printf("feed connected from %s", conn.RemoteAddr())
		s.readFrames(conn)
		conn.Close()
	}
}

// readFrames decodes frames until the connection drops. The channel send
// applies TCP backpressure when the render loop falls behind.
func (s *feedServer) readFrames(conn net.Conn) {
	r := bufio.NewReader(conn)
	for {
		ev, err := readFeedEvent(r)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("feed decode: %v", err)
			}
			return
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

// drain applies at most maxFeedEventsPerTick pending events without
// blocking, returning the updated amplitude snapshot.
func (s *feedServer) drain(arr *sourceArray, savedAmps []float32) []float32 {
	for i := 0; i < maxFeedEventsPerTick; i++ {
		select {
		case ev := <-s.events:
			savedAmps = applyFeedEvent(ev, arr, savedAmps)
		default:
			return savedAmps
		}
	}
	return savedAmps
}

// Close stops the listener.
func (s *feedServer) Close() {
	close(s.done)
	s.listener.Close()
}
