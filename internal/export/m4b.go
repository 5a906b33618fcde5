package export

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"lector/internal/assemble"
)

func runFFmpeg(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// BookTags carries the container-level metadata stamped on the audiobook.
type BookTags struct {
	Title  string
	Author string
}

// writeM4B encodes the spool to AAC inside an iPod-brand MP4 container,
// the layout audiobook players expect for .m4b files. Chapter marks and
// book tags come from the ffmetadata side file.
func writeM4B(ctx context.Context, binary, spoolPath, metadataPath, outPath string, sampleRate int, bitrate string) error {
	if strings.TrimSpace(bitrate) == "" {
		bitrate = "64k"
	}
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "f32le", "-ar", strconv.Itoa(sampleRate), "-ac", "1", "-i", spoolPath,
		"-f", "ffmetadata", "-i", metadataPath,
		"-map_metadata", "1",
		"-map_chapters", "1",
		"-c:a", "aac",
		"-b:a", bitrate,
		"-movflags", "+faststart",
		"-f", "ipod",
		outPath,
	}
	return ffmpegRun(ctx, binary, args)
}

// writeFFMetadata renders the FFMETADATA1 side file carrying book tags
// and chapter marks. Chapter times use a millisecond timebase.
func writeFFMetadata(path string, tags BookTags, chapters []assemble.ChapterTimeline) error {
	var b strings.Builder
	b.WriteString(";FFMETADATA1\n")
	writeTag(&b, "title", tags.Title)
	writeTag(&b, "album", tags.Title)
	writeTag(&b, "artist", tags.Author)
	writeTag(&b, "genre", "Audiobook")
	for _, chapter := range chapters {
		b.WriteString("[CHAPTER]\n")
		b.WriteString("TIMEBASE=1/1000\n")
		fmt.Fprintf(&b, "START=%d\n", int64(math.Round(chapter.StartS*1000)))
		fmt.Fprintf(&b, "END=%d\n", int64(math.Round(chapter.EndS*1000)))
		title := strings.TrimSpace(chapter.Title)
		if title == "" {
			title = fmt.Sprintf("Chapter %d", chapter.ChapterID)
		}
		writeTag(&b, "title", title)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write ffmetadata: %w", err)
	}
	return nil
}

func writeTag(b *strings.Builder, key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s=%s\n", key, escapeMetadata(value))
}

// escapeMetadata escapes the characters the ffmetadata format reserves.
var metadataEscaper = strings.NewReplacer(
	`\`, `\\`,
	"=", `\=`,
	";", `\;`,
	"#", `\#`,
	"\n", "\\\n",
)

func escapeMetadata(value string) string {
	return metadataEscaper.Replace(value)
}
