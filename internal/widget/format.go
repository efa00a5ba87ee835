package widget

import (
	"fmt"
	"math"
	"regexp"
)

var sizeUnits = []string{"KB", "MB", "GB", "TB"}

// FormatSize renders a byte count with binary prefixes: whole bytes below 1024,
// otherwise one decimal place in KB, MB, GB or TB.
func FormatSize(n int64) string {
	if n == 0 {
		return "0 B"
	}
	if n > -1024 && n < 1024 {
		return fmt.Sprintf("%d B", n)
	}

	v := float64(n)
	u := -1
	for {
		v /= 1024
		u++
		if math.Abs(v) < 1024 || u == len(sizeUnits)-1 {
			break
		}
	}
	return fmt.Sprintf("%.1f %s", v, sizeUnits[u])
}

var finalExt = regexp.MustCompile(`\.[^/.]+$`)

// DownloadName is the artifact name offered for a processed file:
// upscaled_<name without its final extension>.png.
func DownloadName(name string) string {
	return "upscaled_" + finalExt.ReplaceAllString(name, "") + ".png"
}
