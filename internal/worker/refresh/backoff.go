package refresh

import "time"

// maxBackoffFactor は連続失敗時に待つ間隔の上限（通常間隔の倍数）。
const maxBackoffFactor = 16

// NextDelay は連続失敗回数に基づいて次の読み込みまでの待ち時間を計算する。
// 成功直後は通常間隔、失敗が続くと2倍ずつ延ばし、通常間隔の16倍で頭打ちにする。
func NextDelay(interval time.Duration, consecutiveFailures int) time.Duration {
	limit := interval * maxBackoffFactor
	delay := interval
	for i := 0; i < consecutiveFailures; i++ {
		delay *= 2
		if delay >= limit {
			return limit
		}
	}
	return delay
}
