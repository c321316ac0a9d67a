package common

// MaxAudioSizeBytes is the largest audio payload accepted by the pipeline (50 MiB).
const MaxAudioSizeBytes int64 = 50 * 1024 * 1024

// DefaultAudioBucket is the object-storage bucket holding ponto audio files.
const DefaultAudioBucket = "ponto-audios"

// AuthorizationHeaderName carries the bearer credential on HTTP requests.
const AuthorizationHeaderName = "Authorization"
