package store

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Activity is one entry of the downloaded activity list.
type Activity struct {
	ID int64
	// TypeCode is the numeric Strava type, -1 when the list entry did not
	// record it.
	TypeCode  int
	StartDate time.Time
	Name      string
}

func (a Activity) HasType() bool {
	return a.TypeCode >= 0
}

// writeActivityList writes one activity per line as
// "id<TAB>type<TAB>start<TAB>name". Lists holding only ids are also accepted by
// readActivityList.
func writeActivityList(w io.Writer, activities []Activity) error {
	bw := bufio.NewWriter(w)
	for _, a := range activities {
		start := ""
		if !a.StartDate.IsZero() {
			start = a.StartDate.UTC().Format(time.RFC3339)
		}
		name := strings.NewReplacer("\t", " ", "\n", " ").Replace(a.Name)
		_, err := bw.WriteString(strconv.FormatInt(a.ID, 10) + "\t" + strconv.Itoa(a.TypeCode) + "\t" + start + "\t" + name + "\n")
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

func readActivityList(r io.Reader) ([]Activity, error) {
	var activities []Activity
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.SplitN(text, "\t", 4)
		id, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "store: bad activity id on line %d", line)
		}
		a := Activity{ID: id, TypeCode: -1}
		if len(fields) > 1 && fields[1] != "" {
			a.TypeCode, err = strconv.Atoi(fields[1])
			if err != nil {
				return nil, errors.Wrapf(err, "store: bad activity type on line %d", line)
			}
		}
		if len(fields) > 2 && fields[2] != "" {
			a.StartDate, err = time.Parse(time.RFC3339, fields[2])
			if err != nil {
				return nil, errors.Wrapf(err, "store: bad start date on line %d", line)
			}
		}
		if len(fields) > 3 {
			a.Name = fields[3]
		}
		activities = append(activities, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return activities, nil
}

func writeIDs(w io.Writer, ids []int64) error {
	bw := bufio.NewWriter(w)
	for _, id := range ids {
		if _, err := bw.WriteString(strconv.FormatInt(id, 10) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
