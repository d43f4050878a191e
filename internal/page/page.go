// Package page 抓取并解析 moanmyip 首页，提取 IP 文本与音频地址。
//
// 约束：
// - 解析对任意输入都不失败（畸形 HTML 按标准恢复规则处理）
// - 提取器是纯函数：相同 Document => 相同输出
// - 只取第一个匹配元素；其余匹配静默忽略
package page

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/John-Robertt/moanip/internal/domain"
	"github.com/John-Robertt/moanip/internal/infra/httpx"
)

const (
	// IPSelector 定位首页上展示访问者 IP 的容器。
	IPSelector = ".content .ip"

	// AudioSelector 定位音频容器里带 src 的 audio 元素。
	AudioSelector = "#audio-container audio[src]"
)

var errNilBase = errors.New("base URL 为空")

// Document 是一次运行内只读的已解析页面。
type Document struct {
	doc *goquery.Document
}

// Parse 把 HTML 文本解析为 Document。
func Parse(htmlText string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil, domain.Wrap(domain.KindIO, "parse html", err)
	}
	return &Document{doc: doc}, nil
}

// CompileSelector 编译 CSS 选择器；语法错误返回 KindSelector。
func CompileSelector(expr string) (cascadia.Selector, error) {
	sel, err := cascadia.Compile(expr)
	if err != nil {
		return nil, domain.Wrap(domain.KindSelector, expr, err)
	}
	return sel, nil
}

// Select 按文档顺序返回全部匹配元素。返回的 Selection 可以重复遍历。
func (d *Document) Select(sel cascadia.Selector) *goquery.Selection {
	return d.doc.FindMatcher(sel)
}

// ExtractIP 取第一个 IP 容器，把其下所有文本节点以单个空格拼接后去掉首尾空白。
func ExtractIP(d *Document) (string, error) {
	sel, err := CompileSelector(IPSelector)
	if err != nil {
		return "", err
	}
	first := d.Select(sel).First()
	if first.Length() == 0 {
		return "", domain.ErrExternalIPMissing
	}

	ip := strings.TrimSpace(strings.Join(textNodes(first.Nodes[0]), " "))
	if ip == "" {
		// 结构还在但内容为空：与“没有结构”同样无法给出 IP。
		return "", domain.ErrExternalIPMissing
	}
	return ip, nil
}

// ExtractAudioURL 取第一个带 src 的 audio 元素，并以 base 为基准解析其 src。
func ExtractAudioURL(d *Document, base *url.URL) (*url.URL, error) {
	sel, err := CompileSelector(AudioSelector)
	if err != nil {
		return nil, err
	}
	src, ok := d.Select(sel).First().Attr("src")
	if !ok {
		return nil, domain.ErrAudioClipSrcMissing
	}
	return Resolve(base, src)
}

// Resolve 把可能是相对地址的 ref 解析为绝对 URL。
func Resolve(base *url.URL, ref string) (*url.URL, error) {
	if base == nil {
		return nil, domain.Wrap(domain.KindURLParse, ref, errNilBase)
	}
	ru, err := url.Parse(ref)
	if err != nil {
		return nil, domain.Wrap(domain.KindURLParse, ref, err)
	}
	return base.ResolveReference(ru), nil
}

// FetchFrontPage GET base 并解析为 Document。strict=false 时不检查状态码。
func FetchFrontPage(ctx context.Context, c *http.Client, base *url.URL, strict bool) (*Document, error) {
	if base == nil {
		return nil, domain.Wrap(domain.KindURLParse, "", errNilBase)
	}
	u := base.String()
	body, status, err := httpx.GetText(ctx, c, u)
	if err != nil {
		return nil, err
	}
	if err := httpx.CheckStatus(strict, u, status); err != nil {
		return nil, err
	}
	return Parse(body)
}

// textNodes 按文档顺序收集 n 之下的全部文本节点内容（不含注释等其它节点）。
func textNodes(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			out = append(out, n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}
