package sample

import (
	"fmt"
	"strconv"
)

const timeLayout = "2006-01-02T15:04:05.000Z"

// Format renders s as a single output line:
//
//	2024-03-01T12:00:00.123Z temp=24.500C alert=0
func Format(s Sample) string {
	alert := 0
	if s.Alert() {
		alert = 1
	}
	return fmt.Sprintf("%s temp=%sC alert=%d", s.Time().Format(timeLayout), FormatMilliC(s.TempMilliC), alert)
}

// FormatMilliC renders a milli-degree value as degrees with exactly three
// decimals. Integer arithmetic keeps values like -500 from losing their sign.
func FormatMilliC(mC int32) string {
	v := int64(mC)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + strconv.FormatInt(v/1000, 10) + fmt.Sprintf(".%03d", v%1000)
}
