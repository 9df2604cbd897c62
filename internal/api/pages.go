package api

// dashboardHTML is the control page: live status, history, game list and settings.
const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>DonaldSwap</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            max-width: 900px;
            margin: 40px auto;
            padding: 20px;
            background: #f5f5f5;
            color: #333;
        }
        .card {
            background: white;
            padding: 24px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
            margin-bottom: 20px;
        }
        h1 { margin-top: 0; }
        .status-badge { display: inline-block; padding: 4px 10px; border-radius: 12px; font-size: 13px; }
        .status-badge.active { background: #e8f5e9; color: #2e7d32; }
        .status-badge.paused { background: #fff3e0; color: #ef6c00; }
        .status-badge.waiting { background: #eceff1; color: #546e7a; }
        .stats { display: grid; grid-template-columns: repeat(4, 1fr); gap: 12px; margin-top: 16px; }
        .stat .label { font-size: 12px; color: #777; }
        .stat .value { font-size: 20px; font-weight: 600; }
        table { width: 100%; border-collapse: collapse; }
        td, th { text-align: left; padding: 6px 4px; border-bottom: 1px solid #eee; }
        button { padding: 6px 14px; border: 0; border-radius: 4px; background: #1976d2; color: white; cursor: pointer; }
        button.secondary { background: #78909c; }
        input[type=number] { width: 70px; }
        code { background: #f5f5f5; padding: 2px 6px; border-radius: 3px; }
    </style>
</head>
<body>
    <div class="card">
        <h1>DonaldSwap</h1>
        <span id="status-badge" class="status-badge waiting"><span id="status-text">Waiting</span></span>
        <div class="stats">
            <div class="stat"><div class="label">Current game</div><div class="value" id="current-game">-</div></div>
            <div class="stat"><div class="label">On for</div><div class="value" id="time-since">-</div></div>
            <div class="stat"><div class="label">Next swap in</div><div class="value" id="next-swap">-</div></div>
            <div class="stat"><div class="label">Swaps</div><div class="value" id="swap-count">0</div></div>
        </div>
        <p>
            <button onclick="post('/api/swap')">Swap now</button>
            <button class="secondary" id="pause-button" onclick="togglePause()">Pause</button>
        </p>
        <p>OBS browser source: <code>/obs</code></p>
    </div>

    <div class="card">
        <h3>History</h3>
        <table><tbody id="history"></tbody></table>
        <h3>Total time</h3>
        <table><tbody id="totals"></tbody></table>
    </div>

    <div class="card">
        <h3>Games</h3>
        <table>
            <thead><tr><th>Game</th><th>Exe</th><th>Enabled</th><th>ESC leave</th><th>ESC enter</th><th>OBS scene</th><th></th></tr></thead>
            <tbody id="games"></tbody>
        </table>
        <h3>Add from open windows</h3>
        <select id="window-picker"></select>
        <button onclick="addSelected()">Add</button>
        <button class="secondary" onclick="fetchWindows()">Refresh</button>
    </div>

    <div class="card">
        <h3>Settings</h3>
        <p>
            Swap every <input type="number" id="min-minutes" min="0"> to
            <input type="number" id="max-minutes" min="0"> minutes
        </p>
        <p><label><input type="checkbox" id="auto-swap"> Automatic swapping</label></p>
        <p><label><input type="checkbox" id="hide-next"> Hide next swap countdown on overlay</label></p>
        <button onclick="saveSettings()">Save</button>
    </div>

    <script>
        let config = null;
        let state = null;
        let windows = [];

        function fmt(secs) {
            if (secs === null || secs === undefined) return '-';
            if (secs < 0) secs = 0;
            const m = Math.floor(secs / 60), s = secs % 60;
            return m + ':' + String(s).padStart(2, '0');
        }

        function esc(s) {
            return String(s)
                .replace(/&/g, '&amp;')
                .replace(/</g, '&lt;')
                .replace(/>/g, '&gt;')
                .replace(/"/g, '&quot;')
                .replace(/'/g, '&#39;');
        }

        function connectWS() {
            const protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
            const ws = new WebSocket(protocol + '//' + location.host + '/ws');
            ws.onmessage = (ev) => { state = JSON.parse(ev.data); render(); };
            ws.onclose = () => setTimeout(connectWS, 1000);
        }

        async function post(path) {
            const res = await fetch(path, { method: 'POST' });
            const body = await res.json();
            if (!res.ok) { alert(body.error); return; }
            state = body;
            render();
        }

        function togglePause() {
            post(state && state.is_paused ? '/api/resume' : '/api/pause');
        }

        async function putConfig(patch) {
            const res = await fetch('/api/config', {
                method: 'PUT',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify(patch),
            });
            const body = await res.json();
            if (!res.ok) { alert(body.error); return; }
            config = body;
            renderConfig();
        }

        function render() {
            if (!state) return;
            const badge = document.getElementById('status-badge');
            const text = document.getElementById('status-text');
            if (state.is_paused) { text.textContent = 'Paused'; badge.className = 'status-badge paused'; }
            else if (state.current_game) { text.textContent = 'Active'; badge.className = 'status-badge active'; }
            else { text.textContent = 'Waiting'; badge.className = 'status-badge waiting'; }

            document.getElementById('current-game').textContent = state.current_game || '-';
            document.getElementById('time-since').textContent = fmt(state.time_since_swap_seconds);
            document.getElementById('next-swap').textContent = fmt(state.time_until_swap_seconds);
            document.getElementById('swap-count').textContent = state.swap_count;
            document.getElementById('pause-button').textContent = state.is_paused ? 'Resume' : 'Pause';

            document.getElementById('history').innerHTML = (state.history || [])
                .map(h => '<tr><td>' + esc(h.game_name) + '</td><td>' + fmt(h.duration_seconds) + '</td></tr>')
                .join('');
            document.getElementById('totals').innerHTML = Object.entries(state.total_times || {})
                .sort((a, b) => b[1] - a[1])
                .map(([name, secs]) => '<tr><td>' + esc(name) + '</td><td>' + fmt(secs) + '</td></tr>')
                .join('');
        }

        function renderConfig() {
            if (!config) return;
            document.getElementById('games').innerHTML = config.games.map((g, i) =>
                '<tr><td>' + esc(g.display_name || g.exe_name) + '</td><td>' + esc(g.exe_name) + '</td>' +
                ['enabled', 'send_esc_on_leave', 'send_esc_on_enter'].map(f =>
                    '<td><input type="checkbox" ' + (g[f] ? 'checked' : '') + ' onchange="setGame(' + i + ',\'' + f + '\',this.checked)"></td>').join('') +
                '<td><input value="' + esc(g.obs_scene || '') + '" onchange="setGame(' + i + ',\'obs_scene\',this.value)"></td>' +
                '<td><button class="secondary" onclick="removeGame(' + i + ')">Remove</button></td></tr>'
            ).join('');
            document.getElementById('min-minutes').value = config.min_swap_minutes;
            document.getElementById('max-minutes').value = config.max_swap_minutes;
            document.getElementById('auto-swap').checked = config.auto_swap_enabled;
            document.getElementById('hide-next').checked = config.hide_next_swap;
        }

        function setGame(i, field, value) {
            const games = config.games.slice();
            games[i] = Object.assign({}, games[i], { [field]: value });
            putConfig({ games });
        }

        function removeGame(i) {
            putConfig({ games: config.games.filter((_, j) => j !== i) });
        }

        async function fetchWindows() {
            const res = await fetch('/api/windows');
            windows = res.ok ? await res.json() : [];
            document.getElementById('window-picker').innerHTML = windows
                .map((w, i) => '<option value="' + i + '">' + esc(w.exe_name + ' - ' + w.title) + '</option>')
                .join('');
        }

        function addSelected() {
            const w = windows[document.getElementById('window-picker').value];
            if (!w || config.games.some(g => g.exe_name.toLowerCase() === w.exe_name.toLowerCase())) return;
            putConfig({ games: config.games.concat([{ exe_name: w.exe_name, display_name: w.title, enabled: true }]) });
        }

        function saveSettings() {
            putConfig({
                min_swap_minutes: parseInt(document.getElementById('min-minutes').value, 10),
                max_swap_minutes: parseInt(document.getElementById('max-minutes').value, 10),
                auto_swap_enabled: document.getElementById('auto-swap').checked,
                hide_next_swap: document.getElementById('hide-next').checked,
            });
        }

        fetch('/api/config').then(r => r.json()).then(c => { config = c; renderConfig(); });
        fetch('/api/state').then(r => r.json()).then(s => { state = s; render(); });
        fetchWindows();
        connectWS();
    </script>
</body>
</html>`

// overlayHTML is a transparent OBS browser source showing the current game and, unless
// hide_next_swap is set, the countdown to the next swap.
const overlayHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>DonaldSwap overlay</title>
    <style>
        body {
            margin: 0;
            background: transparent;
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            color: white;
            text-shadow: 0 2px 4px rgba(0,0,0,0.8);
        }
        .overlay { padding: 16px 24px; }
        .game { font-size: 36px; font-weight: 700; }
        .countdown { font-size: 22px; opacity: 0.9; }
        .paused { color: #ffb74d; }
    </style>
</head>
<body>
    <div class="overlay">
        <div class="game" id="game"></div>
        <div class="countdown" id="countdown"></div>
    </div>
    <script>
        let hideNext = false;

        function fmt(secs) {
            if (secs < 0) secs = 0;
            const m = Math.floor(secs / 60), s = secs % 60;
            return m + ':' + String(s).padStart(2, '0');
        }

        function render(state) {
            document.getElementById('game').textContent = state.current_game || '';
            const cd = document.getElementById('countdown');
            cd.className = 'countdown';
            if (state.is_paused) {
                cd.textContent = 'Paused';
                cd.className = 'countdown paused';
            } else if (!hideNext && state.time_until_swap_seconds !== null && state.time_until_swap_seconds !== undefined) {
                cd.textContent = 'Next swap in ' + fmt(state.time_until_swap_seconds);
            } else {
                cd.textContent = '';
            }
        }

        function refreshConfig() {
            fetch('/api/config').then(r => r.json()).then(c => { hideNext = c.hide_next_swap; });
        }

        function connectWS() {
            const protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
            const ws = new WebSocket(protocol + '//' + location.host + '/ws');
            ws.onmessage = (ev) => render(JSON.parse(ev.data));
            ws.onclose = () => setTimeout(connectWS, 1000);
        }

        refreshConfig();
        setInterval(refreshConfig, 10000);
        connectWS();
    </script>
</body>
</html>`
