package textproc

// simplifiedToTraditional and traditionalToSimplified are the conversion
// table collaborator delegates to. Covers the common high-frequency
// character set; unmapped runes pass through unchanged in convert.
var simplifiedToTraditional = map[rune]rune{
	'国': '國', '学': '學', '说': '說', '们': '們', '会': '會',
	'这': '這', '来': '來', '时': '時', '没': '沒', '为': '為',
	'对': '對', '现': '現', '还': '還', '后': '後', '从': '從',
	'关': '關', '点': '點', '开': '開', '发': '發', '经': '經',
	'与': '與', '个': '個', '么': '麼', '见': '見', '长': '長',
	'觉': '覺', '让': '讓', '应': '應', '书': '書', '电': '電',
	'车': '車', '门': '門', '问': '問', '间': '間', '听': '聽',
	'买': '買', '卖': '賣', '爱': '愛', '体': '體', '头': '頭',
	'样': '樣', '号': '號', '机': '機', '两': '兩',
	'万': '萬', '东': '東', '儿': '兒', '无': '無', '网': '網',
	'统': '統', '业': '業', '办': '辦', '动': '動', '岁': '歲',
	'总': '總', '义': '義', '专': '專', '级': '級', '组': '組',
	'历': '歷', '传': '傳', '师': '師', '广': '廣', '华': '華',
}

var traditionalToSimplified = invert(simplifiedToTraditional)

func invert(m map[rune]rune) map[rune]rune {
	out := make(map[rune]rune, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}
