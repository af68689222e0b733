package transcode

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// writeMasterPlaylist writes {outDir}/index.m3u8 containing one
// EXT-X-STREAM-INF entry per produced variant, in ladder order.
func writeMasterPlaylist(outDir string, variants []VariantSpec) error {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")

	for _, v := range variants {
		bandwidth := v.TargetBitrateKbps * 1000
		width := ApproxWidth(v.TargetHeight)
		fmt.Fprintf(&b, "#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%dx%d\n", bandwidth, width, v.TargetHeight)
		fmt.Fprintf(&b, "%s/index.m3u8\n", v.Label)
	}

	return os.WriteFile(filepath.Join(outDir, "index.m3u8"), []byte(b.String()), 0o644)
}
