package video

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// ffmpegBin is replaced in tests.
var ffmpegBin = "ffmpeg"

func buildTrimArgs(inputPath, outputPath string, startSeconds, endSeconds int) []string {
	return []string{
		"-ss", strconv.Itoa(startSeconds),
		"-to", strconv.Itoa(endSeconds),
		"-i", inputPath,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		"-c:a", "aac",
		"-movflags", "+faststart",
		"-y",
		outputPath,
	}
}

// trimClip cuts [start, end) out of the source recording and re-encodes it as
// a web-friendly mp4.
func trimClip(ctx context.Context, inputPath, outputPath string, startSeconds, endSeconds int) error {
	if endSeconds <= startSeconds {
		return fmt.Errorf("invalid clip range %d-%d", startSeconds, endSeconds)
	}
	cmd := exec.CommandContext(ctx, ffmpegBin, buildTrimArgs(inputPath, outputPath, startSeconds, endSeconds)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg trim: %w: %s", err, string(output))
	}
	return nil
}
