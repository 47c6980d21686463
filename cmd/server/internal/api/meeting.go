package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/meetassist/cmd/server/internal/orchestrator"
	"github.com/houzhh15/meetassist/cmd/server/internal/session"
)

// maxAudioBytes 单个音频分片上限
const maxAudioBytes = 32 << 20

// maxAudioRequestBytes 携带音频的请求体上限：base64 编码后的分片加上表单/JSON 开销
var maxAudioRequestBytes int64 = maxAudioBytes/3*4 + 1<<20

// limitBody 限制请求体大小，超限读取时返回 *http.MaxBytesError
func limitBody(c *gin.Context, n int64) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
}

// bodyError 请求体读取失败：超限返回 413，其余返回 400
func bodyError(c *gin.Context, prefix string, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		errorResponse(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large")
		return
	}
	badRequestResponse(c, prefix+err.Error())
}

// TranscriptionRequest POST /api/v1/transcriptions (JSON 形式，audio 为 base64)
type TranscriptionRequest struct {
	Audio    []byte `json:"audio"`
	Language string `json:"language"`
	Speaker  string `json:"speaker"`
}

// HandleTranscription 转写一段音频并追加到转写缓冲
// POST /api/v1/transcriptions
// 支持 application/json 与 multipart/form-data (audio 文件 + language/speaker 字段)
func HandleTranscription(agg *orchestrator.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TranscriptionRequest
		limitBody(c, maxAudioRequestBytes)
		if strings.HasPrefix(c.ContentType(), "multipart/") {
			file, err := c.FormFile("audio")
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					bodyError(c, "", err)
					return
				}
				badRequestResponse(c, "audio file is required")
				return
			}
			if file.Size > maxAudioBytes {
				badRequestResponse(c, "audio file too large")
				return
			}
			f, err := file.Open()
			if err != nil {
				badRequestResponse(c, "cannot read audio file")
				return
			}
			defer f.Close()
			req.Audio, err = io.ReadAll(io.LimitReader(f, maxAudioBytes))
			if err != nil {
				badRequestResponse(c, "cannot read audio file")
				return
			}
			req.Language = c.PostForm("language")
			req.Speaker = c.PostForm("speaker")
		} else if err := c.ShouldBindJSON(&req); err != nil {
			bodyError(c, "invalid request body: ", err)
			return
		}

		ctx, err := requestContext(c)
		if err != nil {
			badRequestResponse(c, err.Error())
			return
		}

		seg, err := agg.ProcessTranscription(ctx, orchestrator.TranscriptionRequest{
			Audio:    req.Audio,
			Language: req.Language,
			Speaker:  req.Speaker,
		})
		if err != nil {
			handleError(c, err)
			return
		}
		successResponse(c, seg)
	}
}

// TranslationRequest POST /api/v1/translations
type TranslationRequest struct {
	Text string `json:"text"`
	From string `json:"from"`
	To   string `json:"to"`
}

// HandleTranslation 翻译文本（不修改会话）
// POST /api/v1/translations
func HandleTranslation(agg *orchestrator.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TranslationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequestResponse(c, "invalid request body: "+err.Error())
			return
		}
		out, err := agg.TranslateText(c.Request.Context(), req.Text, req.From, req.To)
		if err != nil {
			handleError(c, err)
			return
		}
		successResponse(c, gin.H{"text": out, "from": req.From, "to": req.To})
	}
}

// SpeakerTextRequest 情感分析与待办检测共用的请求体
type SpeakerTextRequest struct {
	Text    string `json:"text"`
	Speaker string `json:"speaker"`
}

// HandleSentiment 分析情感并更新说话人记录
// POST /api/v1/sentiment
func HandleSentiment(agg *orchestrator.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SpeakerTextRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequestResponse(c, "invalid request body: "+err.Error())
			return
		}
		ctx, err := requestContext(c)
		if err != nil {
			badRequestResponse(c, err.Error())
			return
		}
		rec, err := agg.AnalyzeSentiment(ctx, req.Text, req.Speaker)
		if err != nil {
			handleError(c, err)
			return
		}
		successResponse(c, rec)
	}
}

// HandleDetectActionItems 检测待办事项，仅返回新增项
// POST /api/v1/action-items/detect
func HandleDetectActionItems(agg *orchestrator.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SpeakerTextRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequestResponse(c, "invalid request body: "+err.Error())
			return
		}
		ctx, err := requestContext(c)
		if err != nil {
			badRequestResponse(c, err.Error())
			return
		}
		items, err := agg.DetectActionItems(ctx, req.Text, req.Speaker)
		if err != nil {
			handleError(c, err)
			return
		}
		successResponse(c, gin.H{"items": items})
	}
}

// HandleCompleteActionItem 将待办标记为完成
// POST /api/v1/action-items/:id/complete
func HandleCompleteActionItem(agg *orchestrator.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		item, err := agg.CompleteActionItem(c.Param("id"))
		if err != nil {
			handleError(c, err)
			return
		}
		successResponse(c, item)
	}
}

// AssistantCommandRequest POST /api/v1/assistant/commands
type AssistantCommandRequest struct {
	Command string            `json:"command"`
	Context map[string]string `json:"context"`
}

// HandleAssistantCommand 处理助手命令；推理失败时返回降级文本而非错误
// POST /api/v1/assistant/commands
func HandleAssistantCommand(agg *orchestrator.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AssistantCommandRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequestResponse(c, "invalid request body: "+err.Error())
			return
		}
		successResponse(c, agg.ProcessAssistantCommand(c.Request.Context(), req.Command, req.Context))
	}
}

// HandleMeetingInput 组合流水线：转写 → 情感 + 待办（并行）
// POST /api/v1/meeting-input
// 子步骤失败记录在 errors 字段中，HTTP 状态仍为 200
func HandleMeetingInput(agg *orchestrator.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in orchestrator.MeetingInput
		limitBody(c, maxAudioRequestBytes)
		if err := c.ShouldBindJSON(&in); err != nil {
			bodyError(c, "invalid request body: ", err)
			return
		}
		ctx, err := requestContext(c)
		if err != nil {
			badRequestResponse(c, err.Error())
			return
		}
		out, err := agg.ProcessMeetingInput(ctx, in)
		if err != nil {
			handleError(c, err)
			return
		}
		successResponse(c, out)
	}
}

// HandleClearSession 清空会话并返回新的 generation
// POST /api/v1/session/clear
func HandleClearSession(agg *orchestrator.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		successResponse(c, gin.H{"generation": agg.ClearBuffer()})
	}
}

// HandleGetSession 返回完整会话快照
// GET /api/v1/session
func HandleGetSession(agg *orchestrator.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		successResponse(c, agg.Snapshot())
	}
}

// HandleGetTranscript 返回转写缓冲
// GET /api/v1/session/transcript?speaker=
func HandleGetTranscript(agg *orchestrator.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := agg.Snapshot()
		speaker := c.Query("speaker")
		segments := make([]session.TranscriptSegment, 0, len(snap.Transcript))
		for _, seg := range snap.Transcript {
			if speaker == "" || seg.Speaker == speaker {
				segments = append(segments, seg)
			}
		}
		successResponse(c, gin.H{"generation": snap.Generation, "segments": segments})
	}
}

// HandleGetSentiment 返回情感记录（按说话人）
// GET /api/v1/session/sentiment
func HandleGetSentiment(agg *orchestrator.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := agg.Snapshot()
		successResponse(c, gin.H{"generation": snap.Generation, "speakers": snap.Sentiment})
	}
}

// HandleGetActionItems 返回待办事项
// GET /api/v1/session/action-items?status=open|done|all&speaker=
func HandleGetActionItems(agg *orchestrator.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := c.DefaultQuery("status", "all")
		switch status {
		case "all", string(session.ActionOpen), string(session.ActionDone):
		default:
			errorResponse(c, http.StatusBadRequest, string(orchestrator.VALIDATION_FAILED), "status must be open, done or all")
			return
		}
		speaker := c.Query("speaker")

		snap := agg.Snapshot()
		items := make([]session.ActionItem, 0, len(snap.ActionItems))
		for _, it := range snap.ActionItems {
			if status != "all" && string(it.Status) != status {
				continue
			}
			if speaker != "" && it.Speaker != speaker {
				continue
			}
			items = append(items, it)
		}
		successResponse(c, gin.H{"generation": snap.Generation, "items": items})
	}
}
