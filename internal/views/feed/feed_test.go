package feed

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prince4597/society-management-software-sub001/internal/realtime"
)

func TestAddNewestFirstAndCapped(t *testing.T) {
	m := New("Society")
	for i := 0; i < maxNotices+5; i++ {
		m.Add(realtime.Notice{Title: fmt.Sprintf("n%d", i)})
	}
	if m.Len() != maxNotices {
		t.Fatalf("Len() = %d, want %d", m.Len(), maxNotices)
	}
	if m.notices[0].Title != fmt.Sprintf("n%d", maxNotices+4) {
		t.Errorf("newest = %q", m.notices[0].Title)
	}
}

func TestView(t *testing.T) {
	m := New("Society")
	if !strings.Contains(m.View(80, 10), "Waiting for events") {
		t.Error("empty feed should say it is waiting")
	}

	m.Room = "society:soc-1"
	if !strings.Contains(m.View(80, 10), "joining society:soc-1") {
		t.Error("pending room not shown")
	}
	m.Joined = true
	m.Add(realtime.Notice{Title: "Visitor at gate", Body: "main gate", At: time.Date(2026, 1, 1, 8, 15, 0, 0, time.UTC)})
	v := m.View(100, 10)
	for _, want := range []string{"room society:soc-1", "Visitor at gate", "08:15:00"} {
		if !strings.Contains(v, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestViewTruncates(t *testing.T) {
	m := New("Feed")
	for i := 0; i < 10; i++ {
		m.Add(realtime.Notice{Title: "x"})
	}
	if !strings.Contains(m.View(80, 6), "+7 older") {
		t.Error("overflow indicator missing")
	}
}

func TestReset(t *testing.T) {
	m := New("Feed")
	m.Room, m.Joined = "r", true
	m.Add(realtime.Notice{Title: "x"})
	m.Reset()
	if m.Len() != 0 || m.Room != "" || m.Joined {
		t.Errorf("Reset() left %+v", m)
	}
}
