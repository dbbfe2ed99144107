package interp

import (
	"fmt"

	"github.com/dekarrin/rezi"
)

// MarshalBinary encodes the session's prompts, context, and buffer with REZI
// so a session can be stored and picked up again later.
func (s *Session) MarshalBinary() ([]byte, error) {
	var data []byte

	data = append(data, rezi.EncString(s.prompts.Primary)...)
	data = append(data, rezi.EncString(s.prompts.Continuation)...)
	data = append(data, encLines(s.context)...)
	data = append(data, encLines(s.buffer)...)

	return data, nil
}

// UnmarshalBinary decodes a session previously encoded with MarshalBinary.
// All existing state in s is replaced.
func (s *Session) UnmarshalBinary(data []byte) error {
	var n int
	var err error
	var decoded Session

	decoded.prompts.Primary, n, err = rezi.DecString(data)
	if err != nil {
		return fmt.Errorf("primary prompt: %w", err)
	}
	data = data[n:]

	decoded.prompts.Continuation, n, err = rezi.DecString(data)
	if err != nil {
		return fmt.Errorf("continuation prompt: %w", err)
	}
	data = data[n:]

	decoded.context, n, err = decLines(data)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}
	data = data[n:]

	decoded.buffer, _, err = decLines(data)
	if err != nil {
		return fmt.Errorf("buffer: %w", err)
	}

	*s = decoded
	return nil
}

func encLines(lines []string) []byte {
	data := rezi.EncInt(len(lines))
	for _, l := range lines {
		data = append(data, rezi.EncString(l)...)
	}
	return data
}

func decLines(data []byte) ([]string, int, error) {
	count, total, err := rezi.DecInt(data)
	if err != nil {
		return nil, 0, fmt.Errorf("line count: %w", err)
	}
	if count < 0 {
		return nil, 0, fmt.Errorf("line count: negative value %d", count)
	}
	data = data[total:]

	var lines []string
	for i := 0; i < count; i++ {
		l, n, err := rezi.DecString(data)
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", i, err)
		}
		lines = append(lines, l)
		data = data[n:]
		total += n
	}

	return lines, total, nil
}
