package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/errors"
)

func TestConversationValidate(t *testing.T) {
	tests := []struct {
		name    string
		conv    Conversation
		wantErr *errors.Errno
	}{
		{
			name: "file scope with one file",
			conv: Conversation{
				User:    "student-1",
				Context: Context{Scope: ScopeFile, FileIDs: []string{"F1"}},
			},
		},
		{
			name: "file scope without files",
			conv: Conversation{
				User:    "student-1",
				Context: Context{Scope: ScopeFile},
			},
			wantErr: errors.ErrInvalidScope,
		},
		{
			name: "file scope with two files",
			conv: Conversation{
				User:    "student-1",
				Context: Context{Scope: ScopeFile, FileIDs: []string{"F1", "F2"}},
			},
			wantErr: errors.ErrInvalidScope,
		},
		{
			name: "course scope",
			conv: Conversation{
				User:    "student-1",
				Context: Context{Scope: ScopeCourse, CourseID: "C1", FileIDs: []string{"F1", "F2"}},
			},
		},
		{
			name: "course scope without course id",
			conv: Conversation{
				User:    "student-1",
				Context: Context{Scope: ScopeCourse},
			},
			wantErr: errors.ErrInvalidParam,
		},
		{
			name: "unknown scope",
			conv: Conversation{
				User:    "student-1",
				Context: Context{Scope: "group"},
			},
			wantErr: errors.ErrInvalidParam,
		},
		{
			name: "missing user",
			conv: Conversation{
				Context: Context{Scope: ScopeFile, FileIDs: []string{"F1"}},
			},
			wantErr: errors.ErrInvalidParam,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.conv.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMessageTimestampWireFormat(t *testing.T) {
	msg := Message{Role: RoleUser, Content: "Hallo", Timestamp: 1756723200.5}

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"timestamp":1756723200.5`)

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, msg.Timestamp, decoded.Timestamp)
}

func TestPosixNow(t *testing.T) {
	before := float64(time.Now().Unix())
	now := PosixNow()
	assert.GreaterOrEqual(t, now, before)
	assert.Less(t, now, before+60)
}

func TestChunkLLMMetadata(t *testing.T) {
	chunk := Chunk{Metadata: map[string]string{
		MetaCourseID: "C1",
		MetaFileID:   "F1",
		MetaFileName: "skript.pdf",
	}}

	visible := chunk.LLMMetadata()
	assert.Equal(t, map[string]string{MetaFileName: "skript.pdf"}, visible)
	// The original metadata keeps the filterable keys.
	assert.Contains(t, chunk.Metadata, MetaCourseID)
	assert.Contains(t, chunk.Metadata, MetaFileID)
}

func TestChunkSourceName(t *testing.T) {
	named := Chunk{Metadata: map[string]string{MetaFileName: "folien.pdf"}}
	assert.Equal(t, "folien.pdf", named.SourceName())

	anonymous := Chunk{}
	assert.Equal(t, "Unbekanntes Dokument", anonymous.SourceName())
}
