package variant

import (
	"github.com/rcliao/teachbot/internal/features"
	"github.com/rcliao/teachbot/internal/tokenizer"
	"github.com/rcliao/teachbot/internal/vector"
)

// Builtin model ids.
const (
	SimpleBowID  = "simple_bow_v1"
	SemanticID   = "semantic_v1"
	ContextualID = "contextual_v1"
	HybridID     = "hybrid_deep_context_v1"
)

func rule(feature string, delta int, keywords ...string) features.Rule {
	return features.Rule{Keywords: keywords, Effects: []features.Effect{{Feature: feature, Delta: delta}}}
}

func effects(keywords []string, effs ...features.Effect) features.Rule {
	return features.Rule{Keywords: keywords, Effects: effs}
}

func scale(feature string, factor float64) vector.Scale {
	return vector.Scale{Feature: feature, Factor: factor}
}

var (
	riskKeywords = []string{"死にたい", "消えたい", "自殺", "終わりたい", "生きたくない"}

	workKeywords     = []string{"仕事", "職場", "会社", "残業", "出社", "上司", "同僚"}
	studyKeywords    = []string{"勉強", "試験", "テスト", "アクチュアリー", "数学", "問題集"}
	moneyKeywords    = []string{"金", "お金", "給料", "年収", "投資", "fx", "株", "資産"}
	relationKeywords = []string{"恋", "彼女", "彼氏", "結婚", "失恋", "付き合う"}
	contextKeywords  = []string{"さっき", "それ", "あれ", "前のやつ", "さっきのやつ", "さっきの話"}
	positiveKeywords = []string{"楽しい", "うれしい", "嬉しい", "最高", "助かる", "ありがたい"}
	askKeywords      = []string{"？", "?", "どう思う", "どうすれば", "教えて", "なに", "何"}
	planKeywords     = []string{"やる", "やってみる", "やめる", "続ける", "計画", "スケジュール"}
	metaKeywords     = []string{"このモデル", "AI", "お前", "システム", "モデル", "学習"}

	defaultSafety = "命を捨てるほど価値のある仕事も試験もない。今の状態はひとりで抱える領域を超えている。専門の窓口や信頼できる人間に、今すぐ相談しろ。生き延びてから反撃しろ。"
)

func with(list []string, more ...string) []string {
	out := append([]string(nil), list...)
	return append(out, more...)
}

// SimpleBow is plain bag-of-words with cosine similarity. Its lexicon only
// carries the risk rule, which never reaches the vector.
func SimpleBow() Profile {
	return Profile{
		ID:          SimpleBowID,
		Name:        "シンプルBoWモデル v1",
		Description: "Bag-of-Words＋コサイン類似度の素朴モデル。挙動は一番分かりやすい。",
		Tokenizer:   tokenizer.Options{KeepQuestionMarks: false},
		Lexicon: features.Lexicon{
			Rules: []features.Rule{rule(features.Risk, 3, riskKeywords...)},
		},
		Scorer:          ScorerSingle,
		CorrectionBonus: 0.1,
		MinScore:        0.2,
		MaxKeep:         500,
		Overrides: []Override{
			{
				Name:     "tired",
				When:     Condition{Contains: []string{"疲れた"}},
				Response: "疲れたのは分かるが、何もせずに寝ると自己嫌悪がセットで付いてくる。5分だけ何かやってから倒れろ。",
			},
			{
				Name:     "motivation",
				When:     Condition{Contains: []string{"やる気"}},
				Response: "やる気は行動の結果として生まれる。まず1行やれ。それすらやらないなら、やる気の話をする資格もない。",
			},
		},
		Responses: Responses{
			Safety:     defaultSafety,
			NotLearned: "まだそのパターンは学習してない。お前が修正してくれれば、次からは覚える。",
		},
	}
}

// Semantic adds negation, desire, emotion, person, tense, intensity,
// intent and topic features to the bag of words and bigrams.
func Semantic() Profile {
	return Profile{
		ID:          SemanticID,
		Name:        "意味拡張モデル v1",
		Description: "否定・感情・意図・トピックを特徴量にしたベクトルモデル。",
		Tokenizer:   tokenizer.DefaultOptions(),
		Lexicon: features.Lexicon{
			Rules: []features.Rule{
				effects([]string{"辞めたい", "やめたい", "やめてしまいたい", "やめよ", "やめるの", "やめるか"},
					features.Effect{Feature: "desire", Delta: 2}, features.Effect{Feature: "neg", Delta: 1}),
				rule("neg", 2, "したくない", "やりたくない", "無理", "嫌だ", "いやだ", "やだ"),
				rule("desire", 1, "したい", "やりたい", "なりたい", "欲しい"),

				effects([]string{"疲れた", "つかれた", "しんどい", "きつい", "辛い", "つらい", "限界"},
					features.Effect{Feature: "emo_neg", Delta: 1}, features.Effect{Feature: "stress", Delta: 2}),
				effects([]string{"ムカつく", "むかつく", "腹立つ", "キレそう", "ぶちギレ"},
					features.Effect{Feature: "emo_neg", Delta: 1}, features.Effect{Feature: "anger", Delta: 2}),
				rule("emo_pos", 2, positiveKeywords...),

				effects([]string{"死にたい", "消えたい", "終わりたい", "自殺", "殺したい"},
					features.Effect{Feature: features.Risk, Delta: 3}, features.Effect{Feature: "emo_neg", Delta: 2}),

				rule("first", 1, "俺", "おれ", "私", "わたし", "僕", "ぼく"),
				rule("second", 1, "お前", "君", "きみ", "あなた"),
				rule("third", 1, "あいつ", "やつ", "上司", "同僚", "先輩", "後輩", "親", "家族", "友達"),

				rule("tense_past", 1, "した", "やった", "だった", "してた", "やめた"),
				rule("tense_future", 1, "するつもり", "する予定", "しよう", "してみる", "やめる", "辞める"),
				rule("tense_present", 1, "してる", "している", "やってる", "やっている", "今"),

				rule("intensity", 1, "超", "ちょう", "めちゃ", "めっちゃ", "ガチ", "本気", "マジ", "まじ", "クソ", "鬼"),

				rule(features.IntentAsk, 1, askKeywords...),
				rule("intent_vent", 1, "疲れた", "しんどい", "つらい", "辛い", "やばい", "無理", "だるい"),
				rule("intent_want", 1, "助けて", "相談", "アドバイス", "どうしたら", "手伝って"),
				rule("intent_action", 1, "辞める", "やめる", "やめよ", "退職", "転職", "出す", "出そう"),

				rule(features.TopicWork, 2, "仕事", "職場", "会社", "残業", "出社", "上司"),
				rule(features.TopicStudy, 2, studyKeywords...),
				rule(features.TopicMoney, 2, moneyKeywords...),
				rule(features.TopicRel, 2, relationKeywords...),
			},
		},
		Vector: vector.Options{
			Bigrams: true,
			Scales: []vector.Scale{
				scale("neg", 1.5), scale("desire", 1.5),
				scale("emo_pos", 1.2), scale("emo_neg", 1.2),
				scale("stress", 1.5), scale("anger", 1.5),
				scale(features.Risk, 2.0),
				scale("first", 1.0), scale("second", 1.0), scale("third", 1.0),
				scale("tense_past", 0.8), scale("tense_future", 0.8), scale("tense_present", 0.8),
				scale("intensity", 1.0),
				scale(features.IntentAsk, 1.0), scale("intent_vent", 1.2),
				scale("intent_want", 1.2), scale("intent_action", 1.0),
				scale(features.TopicWork, 1.5), scale(features.TopicStudy, 1.5),
				scale(features.TopicMoney, 1.5), scale(features.TopicRel, 1.5),
			},
		},
		Scorer:          ScorerSingle,
		CorrectionBonus: 0.1,
		MinScore:        0.2,
		MaxKeep:         500,
		Overrides: []Override{
			{
				Name:     "quit_work",
				When:     Condition{All: []string{features.TopicWork}, Any: []string{"desire", "neg"}},
				Response: "仕事を辞めたくなるのは異常じゃない。ただ、感情だけで辞めると次の人生の難易度がハードモードになる。1) 何が一番ストレスか具体化 2) それが会社の構造要因か、自分の戦略不足かを分解 3) 辞める前提で、資金と逃げ道だけ冷静に設計しろ。怒りは武器、ただし冷蔵して使え。",
			},
			{
				Name:     "study_stress",
				When:     Condition{All: []string{"stress", features.TopicStudy}},
				Response: "勉強で潰れそうなら、『毎日死ぬほど』じゃなくて『毎日でも続く』ペースに変えろ。1日全力で燃え尽きる炎より、毎日くすぶり続ける炭の方が強い。これは逃げじゃなく設計だ。",
			},
			{
				Name:     "work_stress",
				When:     Condition{All: []string{"stress", features.TopicWork}},
				Response: "仕事で疲れた時は、『全部』を真面目に扱うのをやめろ。守るべきものを3つだけ決めて、それ以外は薄笑いで流せ。真面目なやつから先に壊れる。",
			},
			{
				Name:     "tired",
				When:     Condition{Contains: []string{"疲れた"}},
				Response: "疲れたなら倒れていい。ただし何もせずに倒れると、自己嫌悪という追加ダメージが乗る。5分だけ何か進めてから沈め。それで明日の自分への言い訳が立つ。",
			},
			{
				Name:     "motivation",
				When:     Condition{Contains: []string{"やる気"}},
				Response: "やる気が湧いたら動く、は一生動かない人間の台詞だ。行動 → 微妙な達成感 → やる気、この順番。1問、1行、1ページ、それだけやれ。やってから文句言え。",
			},
		},
		Responses: Responses{
			Safety:     defaultSafety,
			NotLearned: "そのパターンはまだ学習してない。お前が修正してくれれば、次からはちゃんと覚える。",
		},
	}
}

// Contextual blends the current utterance with the mean of the recent
// turns and dampens old entries.
func Contextual() Profile {
	return Profile{
		ID:          ContextualID,
		Name:        "コンテキストモデル v1",
		Description: "直近の会話履歴をベクトル化して重み付けし、文脈込みで類似検索するモデル。",
		Tokenizer:   tokenizer.DefaultOptions(),
		Lexicon: features.Lexicon{
			ShortFeature: features.LengthShort,
			ShortMax:     4,
			Rules: []features.Rule{
				rule(features.TopicWork, 2, workKeywords...),
				rule(features.TopicStudy, 2, studyKeywords...),
				rule(features.TopicMoney, 2, moneyKeywords...),
				rule(features.TopicRel, 2, relationKeywords...),
				rule(features.ContextRef, 2, contextKeywords...),
				rule("emo_pos", 1, positiveKeywords...),
				rule("emo_neg", 1, "辛い", "つらい", "しんどい", "だるい", "無理", "最悪"),
				rule(features.IntentAsk, 1, askKeywords...),
				rule("intent_vent", 1, "疲れた", "しんどい", "ムカつく", "むかつく", "イライラ", "やってられない"),
				rule("intent_plan", 1, planKeywords...),
				rule(features.TopicMeta, 2, metaKeywords...),
				rule(features.Risk, 3, riskKeywords...),
			},
		},
		Vector: vector.Options{
			Bigrams: true,
			Scales: []vector.Scale{
				scale(features.TopicWork, 1.5), scale(features.TopicStudy, 1.5),
				scale(features.TopicMoney, 1.5), scale(features.TopicRel, 1.5),
				scale(features.TopicMeta, 1.2),
				scale("emo_pos", 1.0), scale("emo_neg", 1.0),
				scale(features.IntentAsk, 1.0), scale("intent_vent", 1.2), scale("intent_plan", 1.0),
				scale(features.ContextRef, 1.8),
				scale(features.LengthShort, 0.8),
			},
		},
		Scorer:            ScorerContextual,
		ContextWindow:     6,
		ContextShortMax:   3,
		DecayHorizonHours: 24,
		DependentBlend:    Blend{Current: 0.3, Context: 0.7},
		NormalBlend:       Blend{Current: 0.7, Context: 0.3},
		CorrectionBonus:   0.1,
		MinScore:          0.15,
		MaxKeep:           800,
		Responses: Responses{
			Safety:      defaultSafety,
			NeedContext: "直前までの話を踏まえたコメントなら、もう少しだけ具体的に言葉を足してくれ。そうすれば文脈に沿って返せる。",
			NotLearned:  "この文脈のパターンはまだ十分学習できていない。お前の方で理想的な返答を書いて、修正学習させてくれ。",
		},
	}
}

// HybridDeepContext combines tokens, bigrams, character trigrams and
// feature labels with a context-blended query, token Jaccard and topic
// overlap.
func HybridDeepContext() Profile {
	return Profile{
		ID:          HybridID,
		Name:        "ハイブリッド深層コンテキスト v1",
		Description: "トークン／n-gram／感情・話題ラベル＋文脈ベクトルを組み合わせた高精度類似検索モデル。",
		Tokenizer:   tokenizer.DefaultOptions(),
		Lexicon: features.Lexicon{
			ShortFeature: features.LengthShort,
			ShortMax:     3,
			Rules: []features.Rule{
				rule(features.TopicWork, 2, workKeywords...),
				rule(features.TopicStudy, 2, studyKeywords...),
				rule(features.TopicMoney, 2, with(moneyKeywords, "為替")...),
				rule(features.TopicRel, 2, with(relationKeywords, "恋愛")...),
				rule(features.TopicMeta, 2, "このモデル", "ai", "お前", "システム", "モデル", "学習", "アルゴリズム"),
				rule("emo_pos", 1, "楽しい", "嬉しい", "うれしい", "最高", "助かる", "ありがたい"),
				rule("emo_neg", 1, "辛い", "つらい", "しんどい", "だるい", "無理", "最悪", "しにたい", "死にたい", "消えたい"),
				rule(features.IntentAsk, 1, askKeywords...),
				rule("intent_vent", 1, "疲れた", "しんどい", "ムカつく", "むかつく", "イライラ", "やってられない", "限界"),
				rule("intent_plan", 1, with(planKeywords, "プラン")...),
				rule(features.ContextRef, 2, with(contextKeywords, "さっきの続き")...),
				rule(features.Risk, 3, riskKeywords...),
			},
		},
		Vector: vector.Options{
			Bigrams:         true,
			CharNgram:       3,
			CharNgramWeight: 0.5,
			Scales: []vector.Scale{
				scale(features.TopicWork, 1.5), scale(features.TopicStudy, 1.5),
				scale(features.TopicMoney, 1.5), scale(features.TopicRel, 1.5),
				scale(features.TopicMeta, 1.2),
				scale("emo_pos", 1.0), scale("emo_neg", 1.0),
				scale(features.IntentAsk, 1.0), scale("intent_vent", 1.3), scale("intent_plan", 1.0),
				scale(features.ContextRef, 2.0),
				scale(features.LengthShort, 0.6),
				scale(features.Risk, 2.5),
			},
		},
		Scorer:            ScorerHybrid,
		ContextWindow:     8,
		ContextShortMax:   3,
		DecayHorizonHours: 48,
		DependentBlend:    Blend{Current: 0.4, Context: 0.6},
		NormalBlend:       Blend{Current: 0.7, Context: 0.3},
		Weights:           Weights{Vector: 0.55, Jaccard: 0.25, Topic: 0.10},
		TopicFeatures: []string{
			features.TopicWork, features.TopicStudy, features.TopicMoney, features.TopicRel, features.TopicMeta,
		},
		CorrectionBonus: 0.08,
		MinScore:        0.18,
		MaxKeep:         1200,
		RichEntries:     true,
		Overrides: []Override{
			{
				Name:     "actuary",
				When:     Condition{All: []string{features.TopicStudy}, Contains: []string{"アクチュアリー"}},
				Response: "アクチュアリーは『全部わかる』前提で挑むと潰れる。取る分野・捨てる分野を決めて、合格点を取りに行く試験だ。完璧主義じゃなく、合格主義で設計しろ。",
			},
			{
				Name:     "quit_work",
				When:     Condition{All: []string{features.TopicWork}, Contains: []string{"辞めたい"}},
				Response: "仕事を辞めたいのは異常じゃない。ただ、感情だけで辞めると次の場所でも同じことを繰り返す。何が一番の毒かを具体化して、それを減らせる転職先か、配置転換か、交渉余地があるかを冷静に洗い出せ。",
			},
		},
		Fallbacks: []Override{
			{
				Name:     "explain_model",
				When:     Condition{All: []string{features.TopicMeta, features.IntentAsk}},
				Response: "このモデルは、過去の対話をベクトル化して、現在の入力＋直近の文脈に一番近いものを探して返している。ズレた返答をしたら、理想的な返答をお前が書いて修正学習させれば、その分だけ賢くなる。",
			},
		},
		Responses: Responses{
			Safety:      "命を削るほど価値のある仕事も試験もない。今の状態はひとりで抱えるには重すぎる。身近な人間か、メンタルの専門家、相談窓口のどれかに今すぐ話せ。生き延びてから、ゆっくり反撃の準備をすればいい。",
			NeedContext: "さっきまでの話を指しているなら、もう一段だけ具体的に書いてくれ。キーワードを2〜3個足してくれれば、文脈に合わせて返せる。",
			NotLearned:  "そのパターンはまだ十分なサンプルがない。お前の理想の返答を書いて修正ボタンを押せ。それがこのモデルにとって最良の学習データになる。",
		},
	}
}

// Builtins returns fresh copies of the four shipped profiles in registry
// order.
func Builtins() []Profile {
	return []Profile{SimpleBow(), Semantic(), Contextual(), HybridDeepContext()}
}
