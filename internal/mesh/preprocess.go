package mesh

import (
	"bufio"
	"io"
	"strings"
)

// DefaultVertexGroupsToModify are the OBJ group names whose faces get
// reassigned to the "physics" material during preprocessing, ported
// from monza/constants.py's VERTEX_GROUPS_TO_MODIFY: these groups mark
// invisible collision-only geometry (pit boxes, start/finish triggers,
// hotlap markers) that must not carry a visible track material.
var DefaultVertexGroupsToModify = []string{
	"AC_PIT",
	"AC_START",
	"AC_AUDIO",
	"HOT_LAP_START",
	"AC_POBJECT",
	"AC_TIME_ATTACK",
}

// PreprocessTrackMesh streams an OBJ file from src to dst, rewriting
// every "usemtl" line inside a vertex group named in groupsToModify to
// "usemtl physics". This is a line-for-line port of
// generate_data.py's _preprocess_track_mesh: a "g " line always ends
// the current modification state, and a group is re-entered by
// matching the group's declaration line against groupsToModify.
func PreprocessTrackMesh(src io.Reader, dst io.Writer, groupsToModify []string) error {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	writer := bufio.NewWriter(dst)

	isModifying := false
	for scanner.Scan() {
		line := scanner.Text()

		if strings.Contains(line, "g ") {
			isModifying = false
		}
		if isVertexGroupToModify(line, groupsToModify) {
			isModifying = true
		}

		if isModifying && strings.Contains(line, "usemtl") {
			if _, err := writer.WriteString("usemtl physics\n"); err != nil {
				return err
			}
			continue
		}
		if _, err := writer.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return writer.Flush()
}

func isVertexGroupToModify(line string, groups []string) bool {
	for _, name := range groups {
		if strings.Contains(line, name) {
			return true
		}
	}
	return false
}
