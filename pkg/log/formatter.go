package log

// silentFormatter logrus 기본 출력 경로의 포맷팅 비용을 없애기 위한 빈 포맷터입니다.
type silentFormatter struct{}

func (f *silentFormatter) Format(_ *Entry) ([]byte, error) {
	return nil, nil
}
