package httpapi

import (
	"net/http"
	"strings"
)

func (h *Handler) swaggerUI(w http.ResponseWriter, r *http.Request) {
	const page = `<!doctype html>
<html lang="ja">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>パラレル生物図鑑 API Swagger</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    const docPath = window.location.pathname.startsWith('/swagger')
      ? '/swagger/openapi.json'
      : '/docs/openapi.json';
    window.ui = SwaggerUIBundle({
      url: docPath,
      dom_id: '#swagger-ui'
    });
  </script>
</body>
</html>`
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

func (h *Handler) swaggerSpec(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, openAPISpec(requestBaseURL(r)))
}

func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); forwarded != "" {
		scheme = strings.Split(forwarded, ",")[0]
		scheme = strings.TrimSpace(scheme)
	}

	host := strings.TrimSpace(r.Host)
	if host == "" {
		host = "localhost:8080"
	}
	return scheme + "://" + host
}

type apiOperation struct {
	method      string
	path        string
	operationID string
	summary     string
	public      bool
	body        bool
	errors      []string
}

var apiOperations = []apiOperation{
	{method: "get", path: "/healthz", operationID: "healthz", summary: "ヘルスチェック", public: true},
	{method: "post", path: "/api/v1/players", operationID: "register", summary: "プレイヤー登録とトークン発行", public: true, body: true, errors: []string{"400"}},
	{method: "get", path: "/api/v1/areas", operationID: "areas", summary: "エリア一覧と現在の時間帯", public: true},
	{method: "get", path: "/api/v1/me", operationID: "me", summary: "プレイヤー情報"},
	{method: "post", path: "/api/v1/checkin", operationID: "checkIn", summary: "ログインボーナス・ニュース・おじさんの手紙"},

	{method: "get", path: "/api/v1/explore", operationID: "exploreState", summary: "探索の状態"},
	{method: "post", path: "/api/v1/explore/start", operationID: "startExplore", summary: "エリア選択（mode指定で探索開始）", body: true, errors: []string{"400", "404", "409"}},
	{method: "post", path: "/api/v1/explore/mode", operationID: "beginExplore", summary: "あみだくじ/直接探索の開始", body: true, errors: []string{"400", "409"}},
	{method: "post", path: "/api/v1/explore/lane", operationID: "playLane", summary: "あみだくじのレーン選択", body: true, errors: []string{"400", "409"}},
	{method: "post", path: "/api/v1/explore/spot", operationID: "interactSpot", summary: "スポットをタップして調べる（位置判定なし）", body: true, errors: []string{"404", "409"}},
	{method: "get", path: "/api/v1/explore/rhythm", operationID: "rhythmChart", summary: "捕獲リズムの譜面", errors: []string{"409"}},
	{method: "post", path: "/api/v1/explore/capture", operationID: "capture", summary: "捕獲", body: true, errors: []string{"409"}},
	{method: "post", path: "/api/v1/explore/close", operationID: "closeResult", summary: "結果を閉じる", body: true, errors: []string{"409"}},
	{method: "post", path: "/api/v1/explore/quit", operationID: "quitExplore", summary: "探索をやめる", errors: []string{"409"}},

	{method: "get", path: "/api/v1/overworld", operationID: "overworldState", summary: "フィールド上の位置とカメラ"},
	{method: "post", path: "/api/v1/overworld/viewport", operationID: "setViewport", summary: "画面サイズの設定", body: true, errors: []string{"400"}},

	{method: "get", path: "/api/v1/journal", operationID: "journal", summary: "図鑑"},
	{method: "get", path: "/api/v1/journal/{id}", operationID: "creatureDetail", summary: "生物の詳細", errors: []string{"404", "409"}},
	{method: "post", path: "/api/v1/journal/{id}/favorite", operationID: "toggleFavorite", summary: "お気に入り切り替え", errors: []string{"404", "409"}},
	{method: "get", path: "/api/v1/journal/{id}/lore", operationID: "lore", summary: "博士による古文書の解読", errors: []string{"404", "409"}},
	{method: "post", path: "/api/v1/doctor/chat", operationID: "doctorChat", summary: "博士に質問する", body: true, errors: []string{"400", "404", "409"}},
	{method: "get", path: "/api/v1/badges", operationID: "badges", summary: "バッジの進捗"},

	{method: "get", path: "/api/v1/inventory", operationID: "inventory", summary: "持ち物"},
	{method: "post", path: "/api/v1/inventory/{id}/use", operationID: "useItem", summary: "相棒にアイテムをあげる", errors: []string{"404", "409"}},

	{method: "get", path: "/api/v1/buddy", operationID: "getBuddy", summary: "相棒の状態", errors: []string{"409"}},
	{method: "post", path: "/api/v1/buddy", operationID: "setBuddy", summary: "相棒の設定", body: true, errors: []string{"404", "409"}},
	{method: "post", path: "/api/v1/buddy/pet", operationID: "petBuddy", summary: "相棒をなでる", errors: []string{"409"}},
	{method: "post", path: "/api/v1/buddy/evolve", operationID: "evolveBuddy", summary: "相棒の進化", errors: []string{"409"}},

	{method: "post", path: "/api/v1/snapshots", operationID: "uploadSnapshot", summary: "AR写真のアップロード", body: true, errors: []string{"400", "413", "503"}},
	{method: "post", path: "/api/v1/debug/reset", operationID: "debugReset", summary: "デバッグ用リセット", body: true, errors: []string{"403"}},
	{method: "get", path: "/ws/overworld", operationID: "overworldSocket", summary: "フィールド移動のWebSocket（?token=）", public: true, errors: []string{"401"}},
}

var statusDescriptions = map[string]string{
	"400": "リクエストが不正です",
	"401": "認証が必要です",
	"403": "許可されていません",
	"404": "見つかりません",
	"409": "今の状態ではできません",
	"413": "データが大きすぎます",
	"503": "利用できません",
}

func openAPISpec(serverURL string) map[string]any {
	paths := map[string]any{}
	for _, op := range apiOperations {
		responses := map[string]any{
			"200": map[string]any{"description": "成功"},
			"429": map[string]any{"description": "リクエストが多すぎます"},
			"500": map[string]any{"description": "サーバーエラー"},
		}
		for _, code := range op.errors {
			responses[code] = map[string]any{"description": statusDescriptions[code]}
		}
		operation := map[string]any{
			"summary":     op.summary,
			"operationId": op.operationID,
			"responses":   responses,
		}
		if !op.public {
			operation["security"] = []map[string][]string{{"bearerAuth": {}}}
			responses["401"] = map[string]any{"description": statusDescriptions["401"]}
		}
		if strings.Contains(op.path, "{id}") {
			operation["parameters"] = []map[string]any{{
				"name": "id", "in": "path", "required": true,
				"schema": map[string]any{"type": "string"},
			}}
		}
		if op.body {
			operation["requestBody"] = map[string]any{
				"content": map[string]any{
					"application/json": map[string]any{"schema": map[string]any{"type": "object"}},
				},
			}
		}

		item, ok := paths[op.path].(map[string]any)
		if !ok {
			item = map[string]any{}
			paths[op.path] = item
		}
		item[op.method] = operation
	}

	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":       "パラレル生物図鑑 API",
			"description": "パラレル生物図鑑のバックエンド API",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": serverURL},
		},
		"paths": paths,
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"bearerAuth": map[string]any{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
		},
	}
}
