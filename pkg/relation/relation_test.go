package relation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/metalfabric/swadm/pkg/util"
)

// sampleTable builds a response in the device's table layout: 7 header
// lines, entry lines, 2 trailing summary lines.
func sampleTable(entries ...string) string {
	lines := []string{
		"MAC address table of slot 0:",
		"-------------------------------------------------------------------------------",
		"MAC Address    VLAN/VSI/BD   Learned-From        Type                Age",
		"",
		"-------------------------------------------------------------------------------",
		"",
		"-------------------------------------------------------------------------------",
	}
	lines = append(lines, entries...)
	lines = append(lines,
		"-------------------------------------------------------------------------------",
		"Total matching items on slot 0 displayed = "+fmt.Sprintf("%d", len(entries)),
	)
	return strings.Join(lines, "\n")
}

func TestParseTable(t *testing.T) {
	raw := sampleTable(
		"0011-2233-4455 100/-/-       10GE1/0/1           dynamic             0",
		"aabb-ccdd-eeff 100/-/-       Eth-Trunk27         dynamic             0",
	)

	got, err := ParseTable(raw)
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}

	want := []Relation{
		{MAC: "00:11:22:33:44:55", Port: "10GE1/0/1"},
		{MAC: "aa:bb:cc:dd:ee:ff", Port: "Eth-Trunk27"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseTable = %+v, want %+v", got, want)
	}
}

func TestParseTableUppercaseMACIsCanonicalized(t *testing.T) {
	raw := sampleTable("00AB-12CD-34EF 200/-/-       10GE1/0/2           dynamic             0")

	got, err := ParseTable(raw)
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	if got[0].MAC != "00:ab:12:cd:34:ef" {
		t.Errorf("MAC = %q, want lowercase canonical form", got[0].MAC)
	}
}

func TestParseTableEmptyResponse(t *testing.T) {
	// A response with no entry rows (or fewer lines than the fixed
	// header and trailer) yields no relations.
	for _, raw := range []string{"", "short\noutput", sampleTable()} {
		got, err := ParseTable(raw)
		if err != nil {
			t.Errorf("ParseTable(%q): %v", raw, err)
		}
		if len(got) != 0 {
			t.Errorf("ParseTable(%q) = %v, want none", raw, got)
		}
	}
}

func TestParseTableMalformedLine(t *testing.T) {
	raw := sampleTable("0011-2233-4455 100/-")

	_, err := ParseTable(raw)
	var malformed *util.MalformedOutputError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want MalformedOutputError", err)
	}
	if !strings.Contains(malformed.Line, "0011-2233-4455") {
		t.Errorf("error line = %q, want the offending line", malformed.Line)
	}
}

func TestParseTableBadMACToken(t *testing.T) {
	tests := []string{
		"0011-2233      100/-/-       10GE1/0/1           dynamic             0",
		"001-2233-4455x 100/-/-       10GE1/0/1           dynamic             0",
		"zz11-2233-4455 100/-/-       10GE1/0/1           dynamic             0",
	}
	for _, entry := range tests {
		if _, err := ParseTable(sampleTable(entry)); !errors.Is(err, util.ErrMalformedOutput) {
			t.Errorf("ParseTable with entry %q = %v, want ErrMalformedOutput", entry, err)
		}
	}
}

func TestSetConcatenatesInIssueOrder(t *testing.T) {
	issued := []string{}
	query := func(name, entry string) QueryFunc {
		return func(ctx context.Context) (string, error) {
			issued = append(issued, name)
			return sampleTable(entry), nil
		}
	}

	set := NewSet(
		query("mac-1", "0011-2233-4455 100/-/-       10GE1/0/1           dynamic             0"),
		query("mac-2", "6677-8899-aabb 100/-/-       10GE1/0/2           dynamic             0"),
	)
	set.Add(query("vlan", "ccdd-eeff-0011 100/-/-       10GE1/0/3           dynamic             0"))

	got, err := set.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	wantOrder := []string{"mac-1", "mac-2", "vlan"}
	if !reflect.DeepEqual(issued, wantOrder) {
		t.Errorf("query order = %v, want %v", issued, wantOrder)
	}
	wantPorts := []string{"10GE1/0/1", "10GE1/0/2", "10GE1/0/3"}
	for i, r := range got {
		if r.Port != wantPorts[i] {
			t.Errorf("relation[%d].Port = %q, want %q", i, r.Port, wantPorts[i])
		}
	}
}

func TestSetIsLazyAndRestartable(t *testing.T) {
	calls := 0
	set := NewSet(func(ctx context.Context) (string, error) {
		calls++
		return sampleTable("0011-2233-4455 100/-/-       10GE1/0/1           dynamic             0"), nil
	})

	// Building the set issues nothing.
	if calls != 0 {
		t.Fatalf("queries issued at construction: %d", calls)
	}

	// Each iteration re-issues the queries.
	for i := 1; i <= 2; i++ {
		if _, err := set.Collect(context.Background()); err != nil {
			t.Fatalf("Collect #%d: %v", i, err)
		}
		if calls != i {
			t.Errorf("after iteration %d: %d queries issued", i, calls)
		}
	}
}

func TestSetStopsAtFirstError(t *testing.T) {
	boom := errors.New("session lost")
	second := 0
	set := NewSet(
		func(ctx context.Context) (string, error) { return "", boom },
		func(ctx context.Context) (string, error) {
			second++
			return sampleTable(), nil
		},
	)

	if _, err := set.Collect(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Collect = %v, want the query error", err)
	}
	if second != 0 {
		t.Error("later query issued after earlier failure")
	}
}
