package contract

import "fmt"

// ValidateRecord 校验记录的定宽不变量（纯函数，无 I/O）：
// - 所有 id 序列长度恰为 length；
// - 序列标注的 word/tag 序列等长，且 Length 非负。
func ValidateRecord(rec Record, length int) error {
	switch r := rec.(type) {
	case ClassifierRecord:
		return checkWidth("word", r.WordIDs, length)
	case *ClassifierRecord:
		return checkWidth("word", r.WordIDs, length)
	case SimilarityRecord:
		if err := checkWidth("text_a", r.TextA, length); err != nil {
			return err
		}
		return checkWidth("text_b", r.TextB, length)
	case *SimilarityRecord:
		return ValidateRecord(*r, length)
	case TaggingRecord:
		if err := checkWidth("word", r.WordIDs, length); err != nil {
			return err
		}
		if err := checkWidth("tag", r.TagIDs, length); err != nil {
			return err
		}
		if r.Length < 0 {
			return fmt.Errorf("%w: negative tagging length %d", ErrInvariantViolation, r.Length)
		}
		return nil
	case *TaggingRecord:
		return ValidateRecord(*r, length)
	case nil:
		return fmt.Errorf("%w: nil record", ErrInvariantViolation)
	default:
		return fmt.Errorf("%w: unknown record variant %T", ErrInvariantViolation, rec)
	}
}

func checkWidth(name string, ids []uint32, length int) error {
	if len(ids) != length {
		return fmt.Errorf("%w: %s width %d, want %d", ErrInvariantViolation, name, len(ids), length)
	}
	return nil
}
