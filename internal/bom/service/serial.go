package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxSerialRun bounds how many serial numbers one call may issue.
const maxSerialRun = 1000000

// serialFormat is a serial number template whose last run of '0' is the counter,
// e.g. "PCB-0000" or "SN000000-A".
type serialFormat struct {
	prefix string
	suffix string
	width  int
}

func parseSerialFormat(format string) (serialFormat, error) {
	end := strings.LastIndex(format, "0")
	if end < 0 {
		return serialFormat{}, invalid("serial number format %q has no 0 counter digits", format)
	}
	start := end
	for start > 0 && format[start-1] == '0' {
		start--
	}
	return serialFormat{
		prefix: format[:start],
		suffix: format[end+1:],
		width:  end + 1 - start,
	}, nil
}

func (f serialFormat) counter(serial string) (int64, error) {
	if serial == "" {
		return 0, nil
	}
	if !strings.HasPrefix(serial, f.prefix) || !strings.HasSuffix(serial, f.suffix) ||
		len(serial) < len(f.prefix)+len(f.suffix)+1 {
		return 0, invalid("serial number %q does not match its format", serial)
	}
	digits := serial[len(f.prefix) : len(serial)-len(f.suffix)]
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return 0, invalid("serial number %q does not match its format", serial)
	}
	return n, nil
}

func (f serialFormat) format(n int64) string {
	return fmt.Sprintf("%s%0*d%s", f.prefix, f.width, n, f.suffix)
}

// NextSerial returns the serial number following last. An empty last starts at 1.
func NextSerial(format, last string) (string, error) {
	serials, err := NextSerials(format, last, 1)
	if err != nil {
		return "", err
	}
	return serials[0], nil
}

// NextSerials returns the next count serial numbers after last.
func NextSerials(format, last string, count int64) ([]string, error) {
	f, err := parseSerialFormat(format)
	if err != nil {
		return nil, err
	}
	if count <= 0 || count > maxSerialRun {
		return nil, invalid("cannot issue %d serial numbers in one run, the limit is %d", count, maxSerialRun)
	}
	n, err := f.counter(last)
	if err != nil {
		return nil, err
	}
	if n > math.MaxInt64-count {
		return nil, invalid("serial number %q cannot advance by %d", last, count)
	}
	serials := make([]string, 0, count)
	for i := int64(1); i <= count; i++ {
		serials = append(serials, f.format(n+i))
	}
	return serials, nil
}

func validateSerial(format, last string) error {
	if format == "" {
		return nil
	}
	f, err := parseSerialFormat(format)
	if err != nil {
		return err
	}
	_, err = f.counter(last)
	return err
}
